package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/coreswitch/qswitch/internal/metrics"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the journal open and serve its queue metrics over /metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			reg := prometheus.NewRegistry()
			if err := reg.Register(metrics.NewCollector(s)); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
			case <-ctx.Done():
				return srv.Shutdown(context.Background())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9300", "address to serve /metrics on")
	return cmd
}
