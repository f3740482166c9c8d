package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mendhq/mend/pkg/classifier"
	"github.com/mendhq/mend/pkg/detector"
	"github.com/mendhq/mend/pkg/events"
	"github.com/mendhq/mend/pkg/healer"
	"github.com/mendhq/mend/pkg/lock"
	"github.com/mendhq/mend/pkg/log"
	"github.com/mendhq/mend/pkg/metrics"
	"github.com/mendhq/mend/pkg/observer"
	"github.com/mendhq/mend/pkg/playbook"
	"github.com/mendhq/mend/pkg/reconciler"
	"github.com/mendhq/mend/pkg/recovery"
	"github.com/mendhq/mend/pkg/router"
	"github.com/mendhq/mend/pkg/storage"
	"github.com/mendhq/mend/pkg/worker"
)

// controlPlane holds the wired collaborators for one mend process
type controlPlane struct {
	books      *playbook.Store
	fleet      *worker.Fleet
	classifier *classifier.Classifier
	broker     *events.Broker
	store      *storage.BoltStore
	loop       *reconciler.Loop
}

func (cp *controlPlane) Close() {
	if cp.broker != nil {
		cp.broker.Stop()
	}
	if cp.books != nil {
		cp.books.Close()
	}
	if cp.store != nil {
		cp.store.Close()
	}
}

func initLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func addControlPlaneFlags(cmd *cobra.Command) {
	cmd.Flags().String("playbooks", "playbooks.yaml", "Recovery playbook file")
	cmd.Flags().String("fleet", "fleet.yaml", "Worker fleet file")
	cmd.Flags().String("data-dir", "./mend-data", "Data directory for cycle history")
	cmd.Flags().Duration("lock-ttl", lock.DefaultTTL, "Coordination lock TTL")
	cmd.Flags().Duration("quiet-period", classifier.DefaultQuietPeriod, "Silence after which a down resource is considered healthy again")
	cmd.Flags().Int("max-actions-per-cycle", 3, "Cap on healing actions per cycle")
	cmd.Flags().Duration("action-cooldown", 10*time.Second, "Cooldown per (action, target) pair; 0 disables")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().Bool("log-json", false, "Log structured JSON instead of console output")
}

// buildControlPlane wires the full observe-detect-heal pipeline from
// command flags. withStore controls whether cycle history is persisted.
func buildControlPlane(cmd *cobra.Command, interval time.Duration, withStore bool) (*controlPlane, error) {
	playbooksPath, _ := cmd.Flags().GetString("playbooks")
	fleetPath, _ := cmd.Flags().GetString("fleet")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	lockTTL, _ := cmd.Flags().GetDuration("lock-ttl")
	quietPeriod, _ := cmd.Flags().GetDuration("quiet-period")
	maxActions, _ := cmd.Flags().GetInt("max-actions-per-cycle")
	cooldown, _ := cmd.Flags().GetDuration("action-cooldown")

	cp := &controlPlane{}

	books, err := playbook.NewStore(playbooksPath, playbook.OSEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load playbooks: %v", err)
	}
	cp.books = books
	metrics.RegisterComponent("playbooks", true, fmt.Sprintf("%d playbooks loaded", books.Len()))

	fleet, err := worker.LoadFleet(fleetPath)
	if err != nil {
		cp.Close()
		return nil, fmt.Errorf("failed to load fleet: %v", err)
	}
	cp.fleet = fleet

	if withStore {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			cp.Close()
			return nil, fmt.Errorf("failed to create data directory: %v", err)
		}
		store, err := storage.NewBoltStore(dataDir)
		if err != nil {
			cp.Close()
			return nil, fmt.Errorf("failed to open history store: %v", err)
		}
		cp.store = store
	}

	cp.classifier = classifier.New(classifier.DefaultRules(), quietPeriod)
	cp.broker = events.NewBroker()

	obs := observer.New(fleet, cp.classifier)
	det := detector.New(detector.DefaultConfig())
	locks := lock.New(lockTTL)
	orch := recovery.New(books, locks, nil)
	rtr := router.New(fleet, orch)
	ctl := healer.New(healer.Config{
		MaxActionsPerCycle: maxActions,
		ActionCooldown:     cooldown,
	}, rtr)

	var store storage.Store
	if cp.store != nil {
		store = cp.store
	}
	cp.loop = reconciler.New(obs, det, ctl, store, cp.broker, interval)
	return cp, nil
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the healing loop",
	Long: `Run the observe-detect-heal loop on a fixed interval.

Serves Prometheus metrics and health endpoints on the metrics address,
plus an ingest endpoint (POST /ingest) that feeds raw worker output to
the failure classifier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)

		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cp, err := buildControlPlane(cmd, interval, true)
		if err != nil {
			return err
		}
		defer cp.Close()

		metrics.SetVersion(Version)
		cp.broker.Start()
		logEvents(cp.broker)

		cp.books.OnReload(func(count int) {
			metrics.UpdateComponent("playbooks", true, fmt.Sprintf("%d playbooks loaded", count))
			cp.broker.Emit(events.EventPlaybooksReloaded,
				fmt.Sprintf("%d playbooks loaded", count), nil)
		})
		if err := cp.books.Watch(); err != nil {
			log.Logger.Warn().Err(err).Msg("Playbook hot reload disabled")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		cp.loop.Start(ctx)

		httpServer := &http.Server{
			Addr:    metricsAddr,
			Handler: newDaemonMux(cp),
		}
		errCh := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server error: %v", err)
			}
		}()

		log.Logger.Info().
			Str("metrics_addr", metricsAddr).
			Dur("interval", interval).
			Int("workers", cp.fleet.Len()).
			Int("playbooks", cp.books.Len()).
			Msg("Mend daemon started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info("Shutting down")
		case err := <-errCh:
			log.Errorf("Shutting down", err)
		}

		cp.loop.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		return nil
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single healing cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)

		persist, _ := cmd.Flags().GetBool("persist")
		cp, err := buildControlPlane(cmd, time.Hour, persist)
		if err != nil {
			return err
		}
		defer cp.Close()

		stats, err := cp.loop.RunCycle(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Cycle %s\n", stats.CycleID)
		fmt.Printf("  Nodes observed:          %d\n", stats.NodesObserved)
		fmt.Printf("  Vulnerabilities:         %d\n", stats.VulnerabilitiesDetected)
		fmt.Printf("  Actions taken:           %d\n", stats.ActionsTaken)
		fmt.Printf("  Suppressed by cooldown:  %d\n", stats.ActionsSuppressedByCooldown)
		fmt.Printf("  Recoveries (ok/fail/skip): %d/%d/%d\n",
			stats.RecoveriesSucceeded, stats.RecoveriesFailed, stats.RecoveriesSkipped)
		fmt.Printf("  Duration:                %s\n", stats.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	addControlPlaneFlags(daemonCmd)
	daemonCmd.Flags().Duration("interval", reconciler.DefaultInterval, "Healing cycle interval")
	daemonCmd.Flags().String("metrics-addr", "127.0.0.1:9400", "Address for metrics and health endpoints")

	addControlPlaneFlags(cycleCmd)
	cycleCmd.Flags().Bool("persist", false, "Persist the cycle to the history store")
}

func newDaemonMux(cp *controlPlane) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cp.classifier.Feed(string(body))
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

// logEvents drains the broker into the structured log so operators see
// the egress stream without attaching an external subscriber
func logEvents(broker *events.Broker) {
	sub := broker.Subscribe()
	go func() {
		logger := log.WithComponent("events")
		for ev := range sub {
			entry := logger.Info().Str("event", string(ev.Type))
			for k, v := range ev.Metadata {
				entry = entry.Str(k, v)
			}
			entry.Msg(ev.Message)
		}
	}()
}
