package model

import "encoding/json"

// Webhook event names the engine reconciles.
const (
	EventChargeSuccess        = "charge.success"
	EventChargeFailure        = "charge.failure"
	EventSubscriptionCreate   = "subscription.create"
	EventSubscriptionDisable  = "subscription.disable"
	EventSubscriptionNotRenew = "subscription.not_renew"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// WebhookEvent is the outer shape of a provider notification. Data is decoded
// per event by the webhook engine.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
