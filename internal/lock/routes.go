package lock

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternlund/lockguard/internal/audit"
)

// PrincipalHeader carries the authenticated principal, set by the
// platform's identity layer in front of this service. The value is
// trusted as-is; session verification is not this subsystem's job.
const PrincipalHeader = "X-Lockguard-Principal"

// RegisterRoutes mounts the lock control surface under /api/lock.
func RegisterRoutes(r chi.Router, ctrl *Controller) {
	r.Route("/api/lock", func(r chi.Router) {
		r.Get("/", handleGetState(ctrl))
		r.Post("/engage", handleEngage(ctrl))
		r.Post("/release", handleRelease(ctrl))
		r.Post("/factor", handleFactor(ctrl))
	})
}

type engageRequest struct {
	Reason string `json:"reason"`
}

type factorRequest struct {
	Purpose Purpose `json:"purpose"`
	Code    string  `json:"code"`
}

type stateResponse struct {
	State        *State `json:"state"`
	ExpiringSoon bool   `json:"expiring_soon"`
}

func handleGetState(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := ctrl.GetState(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		soon, err := ctrl.ExpiringSoon(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stateResponse{State: state, ExpiringSoon: soon})
	}
}

func handleEngage(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		var req engageRequest
		if r.Body != nil {
			// An empty body means an engage with no stated reason.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		decision, err := ctrl.RequestEngage(r.Context(), principal, req.Reason, requestContext(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, statusFor(decision.Outcome), decision)
	}
}

func handleRelease(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		decision, err := ctrl.RequestRelease(r.Context(), principal, requestContext(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, statusFor(decision.Outcome), decision)
	}
}

func handleFactor(ctrl *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(w, r)
		if !ok {
			return
		}

		var req factorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !req.Purpose.Valid() {
			http.Error(w, ErrInvalidPurpose.Error(), http.StatusBadRequest)
			return
		}

		decision, err := ctrl.SubmitFactor(r.Context(), principal, req.Purpose, req.Code, requestContext(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, statusFor(decision.Outcome), decision)
	}
}

// principalFrom extracts the authenticated principal or rejects the
// request with 401.
func principalFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal := r.Header.Get(PrincipalHeader)
	if principal == "" {
		http.Error(w, ErrMissingPrincipal.Error(), http.StatusUnauthorized)
		return "", false
	}
	return principal, true
}

// requestContext captures the caller's address and client for the audit
// trail. RemoteAddr reflects the real client when middleware.RealIP runs.
func requestContext(r *http.Request) audit.Context {
	return audit.Context{
		SourceAddress:    r.RemoteAddr,
		ClientDescriptor: r.UserAgent(),
	}
}

// statusFor maps a decision outcome to an HTTP status.
func statusFor(o Outcome) int {
	switch o {
	case OutcomeCommitted:
		return http.StatusOK
	case OutcomeFactorRequired:
		return http.StatusAccepted
	case OutcomeUnauthorized:
		return http.StatusForbidden
	case OutcomeAlreadyLocked, OutcomeAlreadyUnlocked:
		return http.StatusConflict
	case OutcomeInvalidCode:
		return http.StatusBadRequest
	case OutcomeExpired:
		return http.StatusGone
	case OutcomeNoActiveChallenge:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
