// Package httpapi exposes the REST endpoints and the websocket push channel.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/chatline/internal/logging"
	"github.com/dmitrijs2005/chatline/internal/server/auth"
	"github.com/dmitrijs2005/chatline/internal/server/hub"
	"github.com/dmitrijs2005/chatline/internal/server/messages"
	"github.com/dmitrijs2005/chatline/internal/server/sessions"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	addr     string
	logger   logging.Logger
	auth     *auth.Service
	sessions *sessions.Manager
	codec    *sessions.CookieCodec
	messages *messages.Service
	hub      *hub.Hub

	cookieMaxAge int
}

func NewServer(addr string, logger logging.Logger, as *auth.Service, sm *sessions.Manager,
	codec *sessions.CookieCodec, ms *messages.Service, h *hub.Hub, sessionValidity time.Duration) *Server {
	return &Server{
		addr:         addr,
		logger:       logger.With("module", "http_server"),
		auth:         as,
		sessions:     sm,
		codec:        codec,
		messages:     ms,
		hub:          h,
		cookieMaxAge: int(sessionValidity.Seconds()),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
