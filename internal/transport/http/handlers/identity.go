package http_handlers

import (
	"errors"
	"net/http"

	"github.com/orgnet-app/identity-service/internal/domain"
	"github.com/orgnet-app/identity-service/internal/identity"
	"github.com/orgnet-app/identity-service/internal/logger"
	"github.com/orgnet-app/identity-service/internal/transport/http/dto"
	"github.com/orgnet-app/identity-service/internal/transport/http/middleware"
	"github.com/orgnet-app/identity-service/internal/transport/http/response"
)

type IdentityHandler struct {
	svc *identity.Service
}

func NewIdentityHandler(svc *identity.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

// Session handles GET /identity/v1/session.
// Resolves the caller's external identity against the stored profile, healing
// identifier drift or bootstrapping on the way, then re-reads the profile
// under the caller's own scope.
func (h *IdentityHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	resolved, err := h.svc.Resolve(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	scoped, err := h.svc.LoadScoped(r.Context(), resolved.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("profile_id", scoped.ID).
		Str("role", scoped.Role).
		Msg("session_resolved")

	response.OK(w, dto.SessionData{User: scoped})
}

// Sync handles POST /identity/v1/sync.
// Without a body it re-anchors the caller's own profile onto their current
// subject id. With target_email (national coordinator only) it releases
// another account so its owner's next sign-in re-keys it.
func (h *IdentityHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req dto.SyncRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r, &req); err != nil {
			response.WriteError(w, r, err)
			return
		}
		if err := req.Validate(); err != nil {
			response.WriteError(w, r, err)
			return
		}
	}

	if req.TargetEmail != "" {
		h.syncTarget(w, r, id, req.TargetEmail)
		return
	}

	res, err := h.svc.ReSync(r.Context(), id.Email, id.SubjectID)
	if err != nil {
		writeSyncError(w, r, err)
		return
	}

	if res.Already {
		response.OK(w, dto.SyncData{Success: true, Message: "already synchronized"})
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("synced_id", res.SyncedID).
		Msg("identity_resynced")

	response.OK(w, dto.SyncData{Success: true, SyncedID: res.SyncedID})
}

func (h *IdentityHandler) syncTarget(w http.ResponseWriter, r *http.Request, id identity.Identity, targetEmail string) {
	caller, err := h.svc.Resolve(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if caller.Role != string(domain.RoleNationalCoordinator) {
		response.WriteError(w, r, domain.ErrInsufficientRole(string(domain.RoleNationalCoordinator)))
		return
	}

	if err := h.svc.AllowReSync(r.Context(), targetEmail); err != nil {
		writeSyncError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("actor_id", caller.ID).
		Msg("identity_resync_enabled")

	response.OK(w, dto.SyncData{Success: true, Message: "re-synchronization enabled"})
}

// writeSyncError keeps the re-anchoring failure contract: infrastructure and
// integrity failures carry the critical prefix so operators can grep for them.
func writeSyncError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindIntegrity, domain.KindTransient, domain.KindInternal:
			prefixed := domain.Wrap(de.Kind, de.Code, "Critical error during identity re-anchoring: "+de.Message, de.Cause)
			prefixed.Meta = de.Meta
			response.WriteError(w, r, prefixed)
			return
		}
	}
	response.WriteError(w, r, err)
}
