package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// routes builds the endpoint table. Paths and verbs are part of the public
// contract and must not drift.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-code", s.handleResendCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/auth/account", s.requireAuth(s.handleDeleteAccount)).Methods(http.MethodDelete)

	r.HandleFunc("/messages", s.requireAuth(s.handleListMessages)).Methods(http.MethodGet)
	r.HandleFunc("/messages", s.requireAuth(s.requireVerified(s.handleCreateMessage))).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.requireAuth(s.handleWebsocket)).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}
