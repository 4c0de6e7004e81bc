package model

import (
	"time"

	"paystack-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"         // created at initialize, awaiting first payment
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired" // first payment never arrived
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
	SubscriptionStatusNonRenewing       SubscriptionStatus = "non-renewing"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
)

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusIncomplete: {
		SubscriptionStatusTrialing, SubscriptionStatusActive,
		SubscriptionStatusIncompleteExpired, SubscriptionStatusCanceled,
	},
	SubscriptionStatusTrialing: {
		SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusUnpaid,
		SubscriptionStatusPaused, SubscriptionStatusNonRenewing, SubscriptionStatusCanceled,
	},
	SubscriptionStatusActive: {
		SubscriptionStatusPastDue, SubscriptionStatusUnpaid, SubscriptionStatusPaused,
		SubscriptionStatusNonRenewing, SubscriptionStatusCanceled,
	},
	SubscriptionStatusPastDue:     {SubscriptionStatusActive, SubscriptionStatusUnpaid, SubscriptionStatusCanceled},
	SubscriptionStatusUnpaid:      {SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusPaused:      {SubscriptionStatusActive, SubscriptionStatusCanceled},
	SubscriptionStatusNonRenewing: {SubscriptionStatusActive, SubscriptionStatusCanceled},
	// terminal
	SubscriptionStatusIncompleteExpired: nil,
	SubscriptionStatusCanceled:          nil,
}

func (s SubscriptionStatus) Valid() bool {
	_, ok := subscriptionTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
// Staying in the same status is always allowed.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s == next {
		return true
	}
	for _, to := range subscriptionTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// StatusesInto lists every status with a legal edge into target, target excluded.
// Repositories use it to build narrow WHERE predicates.
func StatusesInto(target SubscriptionStatus) []SubscriptionStatus {
	out := make([]SubscriptionStatus, 0, 4)
	for _, from := range subscriptionStatusOrder {
		if from != target && from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}

var subscriptionStatusOrder = []SubscriptionStatus{
	SubscriptionStatusIncomplete, SubscriptionStatusIncompleteExpired, SubscriptionStatusTrialing,
	SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusUnpaid,
	SubscriptionStatusPaused, SubscriptionStatusNonRenewing, SubscriptionStatusCanceled,
}

// Subscription is the entitlement record for one billing target.
type Subscription struct {
	ID                           string             `json:"id"`
	Plan                         string             `json:"plan"`
	ReferenceID                  string             `json:"referenceId"`
	PaystackCustomerCode         string             `json:"paystackCustomerCode,omitempty"`
	PaystackSubscriptionCode     string             `json:"paystackSubscriptionCode,omitempty"`
	PaystackTransactionReference string             `json:"paystackTransactionReference,omitempty"`
	PaystackEmailToken           string             `json:"-"`
	Status                       SubscriptionStatus `json:"status"`
	PeriodStart                  *time.Time         `json:"periodStart,omitempty"`
	PeriodEnd                    *time.Time         `json:"periodEnd,omitempty"`
	TrialStart                   *time.Time         `json:"trialStart,omitempty"`
	TrialEnd                     *time.Time         `json:"trialEnd,omitempty"`
	CancelAtPeriodEnd            bool               `json:"cancelAtPeriodEnd"`
	Seats                        *int               `json:"seats,omitempty"`
	CreatedAt                    time.Time          `json:"createdAt"`
	UpdatedAt                    time.Time          `json:"updatedAt"`
}

// NewSubscription creates the incomplete row that accompanies a plan checkout.
func NewSubscription(plan, referenceID, txReference string) (*Subscription, error) {
	if plan == "" || referenceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:                           NewID(),
		Plan:                         plan,
		ReferenceID:                  referenceID,
		PaystackTransactionReference: txReference,
		Status:                       SubscriptionStatusIncomplete,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}, nil
}

// StartTrial marks s as trialing for days, starting at now.
func (s *Subscription) StartTrial(now time.Time, days int) {
	end := now.AddDate(0, 0, days)
	s.Status = SubscriptionStatusTrialing
	s.TrialStart = &now
	s.TrialEnd = &end
}

// HasTrialMarker reports whether s ever carried a trial, used for the trial-once rule.
func (s *Subscription) HasTrialMarker() bool {
	return s.TrialStart != nil || s.TrialEnd != nil || s.Status == SubscriptionStatusTrialing
}

// IsEffective reports whether s currently grants entitlement. A trial row
// written at checkout grants nothing until its card authorization is confirmed.
func (s *Subscription) IsEffective() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusNonRenewing:
		return true
	case SubscriptionStatusTrialing:
		return s.PeriodStart != nil || s.ProviderManaged()
	}
	return false
}

// ProviderManaged reports whether the provider holds a recurring subscription for s.
// Rows without a subscription code were synthesized locally and are toggled locally.
func (s *Subscription) ProviderManaged() bool {
	return s.PaystackSubscriptionCode != ""
}

// AwaitingConfirmation reports whether a successful charge should confirm s.
func (s *Subscription) AwaitingConfirmation() bool {
	return s.Status == SubscriptionStatusIncomplete ||
		(s.Status == SubscriptionStatusTrialing && s.PeriodStart == nil)
}
