// Package profiler exposes net/http/pprof on a separate listener.
package profiler

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/fluent/config"
)

const (
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)

// Server manages the pprof server lifecycle.
type Server struct {
	server *http.Server
}

func NewServer() *Server {
	return &Server{}
}

// Handler serves the pprof endpoints under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartIfEnabled starts the pprof server when cfg enables it.
func (s *Server) StartIfEnabled(ctx context.Context, cfg config.ConfigurationProfiler) error {
	if !cfg.ProfilerEnabled() {
		return nil
	}

	log := util.Log(ctx)
	profilerPort := cfg.ProfilerPort()
	log.WithField("port", profilerPort).Info("starting pprof server")

	s.server = &http.Server{
		Addr:              profilerPort,
		Handler:           Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("pprof server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the pprof server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		util.Log(ctx).WithError(err).Error("failed to shutdown pprof server")
		return err
	}

	s.server = nil
	return nil
}

func (s *Server) IsRunning() bool {
	return s.server != nil
}
