package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mkrivosheev/globetrek/backend/internal/pkg/validate"
	authsvc "github.com/mkrivosheev/globetrek/backend/internal/services/auth"
	progresssvc "github.com/mkrivosheev/globetrek/backend/internal/services/progress"
	"github.com/mkrivosheev/globetrek/backend/internal/transport/http/dto"
	httperrors "github.com/mkrivosheev/globetrek/backend/internal/transport/http/errors"
)

type AdminResetHandler struct {
	progress *progresssvc.Service
}

func NewAdminResetHandler(progress *progresssvc.Service) *AdminResetHandler {
	return &AdminResetHandler{progress: progress}
}

func (h *AdminResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	if h.progress == nil {
		writeInternal(w, "progress service is unavailable")
		return
	}

	var req dto.ProgressResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if !validate.Required(req.UserID) || !validate.Required(req.ResetFrom) {
		writeBadRequest(w, "user_id and reset_from are required")
		return
	}

	targetUserID, err := strconv.ParseInt(req.UserID, 10, 64)
	if err != nil || targetUserID <= 0 {
		writeBadRequest(w, "invalid user_id")
		return
	}
	boundary, err := progresssvc.ParseBoundary(req.ResetFrom)
	if err != nil {
		writeBadRequest(w, "invalid reset_from")
		return
	}

	result, err := h.progress.Reset(r.Context(), identity.UserID, targetUserID, boundary)
	if err != nil {
		switch {
		case errors.Is(err, progresssvc.ErrForbidden):
			writeForbidden(w, "administrative role required")
		case errors.Is(err, progresssvc.ErrProfileNotFound):
			writeNotFound(w, "profile not found")
		case errors.Is(err, progresssvc.ErrValidation), errors.Is(err, progresssvc.ErrUnknownBoundary):
			writeBadRequest(w, "invalid reset request")
		default:
			writeInternal(w, "failed to reset progress")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProgressResetResponse{
		Success: true,
		Deleted: result.Deleted,
	})
}
