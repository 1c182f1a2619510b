package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/chatline/internal/server/auth"
	"github.com/dmitrijs2005/chatline/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.Register(r.Context(), auth.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err, req.Email)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "verification code sent",
		"userId":  userID,
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.auth.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, err, req.Email)
		return
	}

	// Verification doubles as implicit login.
	if !s.establishSession(w, r, user.ID) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "email verified",
		"user":    user,
	})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.auth.ResendCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, err, req.Email)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code resent"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, req.Email)
		return
	}

	if !s.establishSession(w, r, user.ID) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in",
		"user":    user,
	})
}

// establishSession creates a session, signs it into the cookie, and reports
// whether the caller may proceed.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	token, err := s.sessions.Create(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}

	value, err := s.codec.Encode(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}

	s.setSessionCookie(w, value)
	return true
}

// handleLogout destroys the current session when one exists. It is
// idempotent: logging out without a session still succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if token, err := s.codec.Decode(cookie.Value); err == nil {
			_ = s.sessions.Destroy(r.Context(), token)
		}
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.resolveRequest(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user.Public(),
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.auth.DeleteAccount(r.Context(), user.ID); err != nil {
		writeServiceError(w, err, user.Email)
		return
	}

	_ = s.sessions.Destroy(r.Context(), tokenFromContext(r.Context()))
	s.clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	take := 0
	if v := r.URL.Query().Get("take"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			take = n
		}
	}

	list, err := s.messages.List(r.Context(), take)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	if list == nil {
		list = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := userFromContext(r.Context())

	message, err := s.messages.Create(r.Context(), user.ID, req.Text)
	if err != nil {
		writeServiceError(w, err, user.Email)
		return
	}

	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
