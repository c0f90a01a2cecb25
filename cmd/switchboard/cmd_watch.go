package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/internal/engine"
	"github.com/scrypster/switchboard/internal/notify"
	"github.com/scrypster/switchboard/internal/transport"
)

func newWatchCmd(open opener) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the configuration current until interrupted",
		Long: `Watch downloads the configuration periodically, applies payload files
published into the data path, follows the push stream when one is
configured and serves Prometheus metrics when enabled.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Download interval (0 disables polling)")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, a, interval)
	})
	return cmd
}

// runWatch blocks until ctx is done and every background reader has
// stopped.
func runWatch(ctx context.Context, a *app, interval time.Duration) error {
	sw := a.sw
	var wg sync.WaitGroup
	defer wg.Wait()

	if a.cfg.Debug.PayloadWatch {
		watcher := notify.NewPayloadWatcher(a.cfg.Storage.DataPath, func(name string, data []byte) {
			if err := sw.ApplyJSON(ctx, data, engine.SourceWatcher); err != nil {
				log.Printf("switchboard: payload %s rejected: %v", name, err)
			}
		})
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if url := a.cfg.Transport.StreamURL; url != "" {
		stream := transport.NewStream(url)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = stream.Run(ctx, func(ctx context.Context, data []byte) error {
				return sw.ApplyJSON(ctx, data, engine.SourceStream)
			})
		}()
	}

	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("switchboard: metrics server: %v", err)
			}
		}()
		log.Printf("switchboard: metrics at http://%s/metrics", a.cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	poll := interval > 0 && sw.ServerURL() != ""
	var tick <-chan time.Time
	if poll {
		download(ctx, a)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("switchboard: shutting down")
			return nil
		case <-tick:
			download(ctx, a)
		}
	}
}

func download(ctx context.Context, a *app) {
	err := a.sw.Download(ctx, a.uuid, a.cfg.Server.TrackingID, nil)
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrRateLimited), errors.Is(err, transport.ErrCircuitOpen):
		log.Printf("switchboard: download skipped: %v", err)
	default:
		log.Printf("switchboard: download failed: %v", err)
	}
}
