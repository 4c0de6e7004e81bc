package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"paystack-billing/internal/config"
	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/adapter"
	"paystack-billing/internal/infra/i18n"
)

var _ adapter.Notifier = (*Notifier)(nil)

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts billing lifecycle messages to the operator chats.
type Notifier struct {
	bot     sender
	chatIDs []int64
	tr      *i18n.Translator
	log     *zerolog.Logger
}

// NewNotifier connects to the bot API with cfg.Token.
func NewNotifier(cfg *config.TelegramConfig, logger *zerolog.Logger) (*Notifier, error) {
	if cfg == nil {
		return nil, errors.New("telegram config is nil")
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	tr, err := i18n.Load(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("telegram locale: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newNotifier(bot, cfg.ChatIDs, tr, logger), nil
}

func newNotifier(bot sender, chatIDs []int64, tr *i18n.Translator, logger *zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, chatIDs: chatIDs, tr: tr, log: logger}
}

func (n *Notifier) SubscriptionComplete(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.broadcast(ctx, "notify.subscription_complete", sub, plan)
}

func (n *Notifier) SubscriptionCanceled(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.broadcast(ctx, "notify.subscription_canceled", sub, plan)
}

func (n *Notifier) TrialStarted(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	return n.broadcast(ctx, "notify.trial_started", sub, plan)
}

// broadcast sends to every chat and returns the first failure after trying all.
func (n *Notifier) broadcast(ctx context.Context, titleKey string, sub *model.Subscription, plan *model.Plan) error {
	if sub == nil {
		return nil
	}
	text := formatSubscription(n.tr, titleKey, sub, plan)
	var firstErr error
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("send to %d: %w", chatID, err)
			}
		}
	}
	return firstErr
}

func formatSubscription(tr *i18n.Translator, titleKey string, sub *model.Subscription, plan *model.Plan) string {
	planName := sub.Plan
	if plan != nil && plan.Name != "" {
		planName = plan.Name
	}
	lines := []string{
		tr.T(titleKey),
		tr.T("notify.plan", planName),
		tr.T("notify.reference", sub.ReferenceID),
		tr.T("notify.status", sub.Status),
	}
	if sub.PaystackSubscriptionCode != "" {
		lines = append(lines, tr.T("notify.paystack", sub.PaystackSubscriptionCode))
	}
	if sub.TrialEnd != nil {
		lines = append(lines, tr.T("notify.trial_ends", sub.TrialEnd.UTC().Format("2006-01-02")))
	}
	if sub.PeriodEnd != nil && sub.Status != model.SubscriptionStatusTrialing {
		lines = append(lines, tr.T("notify.period_ends", sub.PeriodEnd.UTC().Format("2006-01-02")))
	}
	return strings.Join(lines, "\n")
}
