package handlers

import (
	"errors"
	"io"
	"net/http"

	authsvc "github.com/mkrivosheev/globetrek/backend/internal/services/auth"
	entsvc "github.com/mkrivosheev/globetrek/backend/internal/services/entitlements"
	"github.com/mkrivosheev/globetrek/backend/internal/transport/http/dto"
	httperrors "github.com/mkrivosheev/globetrek/backend/internal/transport/http/errors"
)

type EntitlementHandler struct {
	entitlements *entsvc.Service
}

func NewEntitlementHandler(entitlements *entsvc.Service) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// Check answers 200 even for a negative entitlement; only a missing or
// invalid credential is a transport error.
func (h *EntitlementHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "entitlements service is unavailable")
		return
	}

	var req dto.EntitlementCheckRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := h.entitlements.Check(r.Context(), identity.UserID, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrUnknownKey), errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "invalid entitlement key")
		default:
			writeInternal(w, "failed to check entitlement")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementCheckResponse{
		Entitled: result.Entitled,
		Key:      result.Key,
		Since:    result.Since,
	})
}
