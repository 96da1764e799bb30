package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/techsched/api/faults"
	"github.com/kilianp07/techsched/infra/logger"
	"github.com/kilianp07/techsched/infra/metrics"
)

// Handler returns the HTTP API of the service.
func (s *Service) Handler() http.Handler {
	return faults.NewHandler(s, logger.New("api"))
}

// Run serves the HTTP API and background jobs until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	go s.Directory.Run(ctx, s.cfg.Directory.RefreshInterval())
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
