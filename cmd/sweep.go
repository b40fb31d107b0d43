package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/recallkit/internal/clock"
	"github.com/example/recallkit/internal/config"
	"github.com/example/recallkit/internal/metrics"
	"github.com/example/recallkit/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim orphaned study sessions",
	Long:  "Marks active sessions with no activity past the TTL as abandoned. Runs once by default; --daemon keeps sweeping on an interval.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		daemon, _ := cmd.Flags().GetBool("daemon")

		var m *metrics.Metrics
		if daemon && cfg.MetricsAddr != "" {
			m = metrics.New()
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
					log.Printf("metrics server: %v", err)
				}
			}()
		}

		sweeper := sweep.New(st.Sessions(), clock.System{}, cfg.SweepTTL, m)

		if !daemon {
			n, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Printf("reclaimed %d stale sessions\n", n)
			return nil
		}

		if err := sweeper.Start(cfg.SweepInterval); err != nil {
			return fmt.Errorf("start sweep: %w", err)
		}
		defer sweeper.Stop()

		log.Printf("sweep daemon running (ttl %s, interval %s)", cfg.SweepTTL, cfg.SweepInterval)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	sweepCmd.Flags().Bool("daemon", false, "Keep sweeping on the configured interval")
}
