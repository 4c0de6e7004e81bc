package model

import (
	"strings"
	"time"

	"paystack-billing/internal/domain"
)

// Interval is a Paystack billing interval.
type Interval string

const (
	IntervalHourly     Interval = "hourly"
	IntervalDaily      Interval = "daily"
	IntervalWeekly     Interval = "weekly"
	IntervalMonthly    Interval = "monthly"
	IntervalQuarterly  Interval = "quarterly"
	IntervalBiannually Interval = "biannually"
	IntervalAnnually   Interval = "annually"
)

// Advance returns the end of one billing period that starts at t.
// Unknown intervals are treated as monthly.
func (i Interval) Advance(t time.Time) time.Time {
	switch i {
	case IntervalHourly:
		return t.Add(time.Hour)
	case IntervalDaily:
		return t.AddDate(0, 0, 1)
	case IntervalWeekly:
		return t.AddDate(0, 0, 7)
	case IntervalQuarterly:
		return t.AddDate(0, 3, 0)
	case IntervalBiannually:
		return t.AddDate(0, 6, 0)
	case IntervalAnnually:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

type FreeTrial struct {
	Days int `yaml:"days" json:"days"`
}

// PlanLimits bounds what a subscription on the plan may hold. Nil means unbounded.
type PlanLimits struct {
	Seats *int `yaml:"seats" json:"seats,omitempty"`
	Teams *int `yaml:"teams" json:"teams,omitempty"`
}

// Plan is a recurring offering. A plan with a PlanCode is provider-managed;
// without one it is billed locally with Amount.
type Plan struct {
	Name      string      `yaml:"name" json:"name"`
	PlanCode  string      `yaml:"plan_code" json:"planCode,omitempty"`
	Amount    int64       `yaml:"amount" json:"amount,omitempty"`
	Currency  string      `yaml:"currency" json:"currency,omitempty"`
	Interval  Interval    `yaml:"interval" json:"interval,omitempty"`
	FreeTrial *FreeTrial  `yaml:"free_trial" json:"freeTrial,omitempty"`
	Limits    *PlanLimits `yaml:"limits" json:"limits,omitempty"`
}

func (p *Plan) Validate() error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return domain.ErrInvalidArgument
	}
	if p.PlanCode == "" && p.Amount <= 0 {
		return domain.ErrInvalidArgument
	}
	if p.Amount < 0 {
		return domain.ErrInvalidArgument
	}
	if p.FreeTrial != nil && p.FreeTrial.Days < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// TrialDays returns the configured free trial length, zero when none.
func (p *Plan) TrialDays() int {
	if p == nil || p.FreeTrial == nil {
		return 0
	}
	return p.FreeTrial.Days
}

// SeatLimit returns the seat cap of the plan and whether one is configured.
func (p *Plan) SeatLimit() (int, bool) {
	if p == nil || p.Limits == nil || p.Limits.Seats == nil {
		return 0, false
	}
	return *p.Limits.Seats, true
}

// TeamLimit returns the team cap of the plan and whether one is configured.
func (p *Plan) TeamLimit() (int, bool) {
	if p == nil || p.Limits == nil || p.Limits.Teams == nil {
		return 0, false
	}
	return *p.Limits.Teams, true
}

// Product is a one-time purchasable item.
type Product struct {
	Name     string         `yaml:"name" json:"name"`
	Amount   float64        `yaml:"amount" json:"amount"`
	Currency string         `yaml:"currency" json:"currency,omitempty"`
	Metadata map[string]any `yaml:"metadata" json:"metadata,omitempty"`
}

func (p *Product) Validate() error {
	if p == nil || strings.TrimSpace(p.Name) == "" || p.Amount <= 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}
