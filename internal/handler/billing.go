package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
	"github.com/thebackstage/backstage/internal/service/payment"
)

// BillingHandler exposes checkout, the customer portal, and the payment
// provider's webhook.
type BillingHandler struct {
	subscriptionService *service.SubscriptionService
	paymentProvider     payment.Provider
}

func NewBillingHandler(subscriptionService *service.SubscriptionService, paymentProvider payment.Provider) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		paymentProvider:     paymentProvider,
	}
}

type subscriptionView struct {
	PlanID           string     `json:"planId"`
	Status           string     `json:"status"`
	Price            string     `json:"price,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	GateLimit        int        `json:"gateLimit"`
}

// Show handles GET /api/dashboard/billing
func (h *BillingHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.subscriptionService.Subscription(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionView{
		PlanID:           sub.PlanID,
		Status:           sub.Status,
		Price:            sub.FormatPrice(),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		GateLimit:        sub.GateLimit(),
	})
}

type checkoutRequest struct {
	Interval string `json:"interval"`
}

// Checkout handles POST /api/dashboard/billing/checkout
// There is a single paid plan; the request only picks the interval.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req checkoutRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interval := req.Interval
	if interval == "" {
		interval = model.SubscriptionIntervalMonthly
	}
	if interval != model.SubscriptionIntervalMonthly && interval != model.SubscriptionIntervalYearly {
		writeError(w, http.StatusBadRequest, "interval must be monthly or yearly")
		return
	}

	url, err := h.paymentProvider.CreateCheckoutURL(user.ID, model.SubscriptionPlanPro, interval, user.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkoutUrl": url})
}

// Portal handles POST /api/dashboard/billing/portal
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	url, err := h.paymentProvider.CustomerPortalURL(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"portalUrl": url})
}

// Webhook handles POST /webhooks/stripe
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}
	defer func() { _ = r.Body.Close() }()

	err = h.paymentProvider.HandleWebhook(payload, r.Header)
	if err != nil {
		slog.Warn("webhook processing failed", "provider", h.paymentProvider.Name(), "error", err)
		writeError(w, http.StatusBadRequest, "webhook rejected")
		return
	}

	w.WriteHeader(http.StatusOK)
}
