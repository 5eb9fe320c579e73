package handlers

import (
	"errors"
	"io"
	"net/http"

	paymentsvc "github.com/mkrivosheev/globetrek/backend/internal/services/payments"
	"github.com/mkrivosheev/globetrek/backend/internal/transport/http/dto"
	httperrors "github.com/mkrivosheev/globetrek/backend/internal/transport/http/errors"
)

const webhookBodyLimit = 1 << 20

type WebhookHandler struct {
	payments *paymentsvc.Service
}

func NewWebhookHandler(payments *paymentsvc.Service) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Handle accepts one provider delivery. A benign duplicate answers 200 like
// a first delivery; abuse answers 409; everything unexpected answers 500 so
// the provider's retry policy redelivers.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "payments service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}

	result, err := h.payments.HandleEvent(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrSignatureInvalid):
			writeBadRequest(w, "invalid webhook signature")
		case errors.Is(err, paymentsvc.ErrMissingUserID),
			errors.Is(err, paymentsvc.ErrUnsupportedTier),
			errors.Is(err, paymentsvc.ErrValidation):
			writeBadRequest(w, "invalid event payload")
		case errors.Is(err, paymentsvc.ErrSessionReplay),
			errors.Is(err, paymentsvc.ErrCustomerReuse):
			writeConflict(w, "event rejected")
		default:
			writeInternal(w, "failed to process event")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WebhookResponse{Received: result.Received})
}
