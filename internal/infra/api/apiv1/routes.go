package apiv1

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"paystack-billing/internal/usecase"
)

// RegisterAPIV1 mounts the billing endpoints under basePath. guard wraps the
// session-bound endpoints, typically with the trusted-origin check.
func RegisterAPIV1(r chi.Router, s *Server, basePath string, guard ...func(http.Handler) http.Handler) {
	basePath = "/" + strings.Trim(basePath, "/")
	if basePath == "/" {
		basePath = ""
	}

	routes := func(r chi.Router) {
		r.Get("/get-config", s.GetConfig)
		r.Post("/webhook", s.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(guard...)
			r.Use(s.requireSession)

			r.With(s.reference(usecase.ActionInitializeTransaction)).Post("/initialize-transaction", s.InitializeTransaction)
			r.With(s.reference(usecase.ActionVerifyTransaction)).Post("/verify-transaction", s.VerifyTransaction)
			r.With(s.reference(usecase.ActionListSubscriptions)).Get("/list-subscriptions", s.ListSubscriptions)
			r.With(s.reference(usecase.ActionListTransactions)).Get("/list-transactions", s.ListTransactions)
			r.With(s.reference(usecase.ActionManageLink)).Get("/get-subscription-manage-link", s.GetManageLink)

			disable := s.reference(usecase.ActionDisableSubscription)
			r.With(disable).Post("/disable-subscription", s.DisableSubscription)
			r.With(disable).Post("/cancel-subscription", s.DisableSubscription)

			enable := s.reference(usecase.ActionEnableSubscription)
			r.With(enable).Post("/enable-subscription", s.EnableSubscription)
			r.With(enable).Post("/restore-subscription", s.EnableSubscription)
		})
	}

	if basePath == "" {
		routes(r)
		return
	}
	r.Route(basePath, routes)
}
