package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/chatline/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// The email parameter feeds the needsVerification payload so clients can
// branch back into the verification flow.
func writeServiceError(w http.ResponseWriter, err error, email string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusBadRequest, "email or phone already in use")
	case errors.Is(err, common.ErrAlreadyVerified):
		writeError(w, http.StatusBadRequest, "email already verified")
	case errors.Is(err, common.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid or expired verification code")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, common.ErrVerificationRequired):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":             "email not verified",
			"needsVerification": true,
			"email":             email,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
