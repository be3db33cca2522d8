package fluent

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/pitabwire/fluent/config"
)

const (
	defaultHTTPReadTimeoutSeconds  = 15
	defaultHTTPWriteTimeoutSeconds = 15
	defaultHTTPIdleTimeoutSeconds  = 60
	defaultShutdownTimeoutSeconds  = 10
)

func (s *Service) determineHTTPPort(currentPort string) string {
	if currentPort != "" {
		return currentPort
	}

	cfg, ok := s.Config().(config.ConfigurationPorts)
	if !ok {
		return ":8080"
	}
	return cfg.HTTPPort()
}

// Run serves handler on address, or the configured HTTP port when address
// is empty, until ctx is done or the server fails. The service is stopped
// before Run returns.
func (s *Service) Run(ctx context.Context, address string, handler http.Handler) error {
	address = s.determineHTTPPort(address)

	srv := &http.Server{
		Addr:    address,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadTimeout:  defaultHTTPReadTimeoutSeconds * time.Second,
		WriteTimeout: defaultHTTPWriteTimeoutSeconds * time.Second,
		IdleTimeout:  defaultHTTPIdleTimeoutSeconds * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log(ctx).WithField("address", address).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.Log(ctx).WithError(err).Error("system exit in error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeoutSeconds*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	s.Stop(shutdownCtx)
	return err
}
