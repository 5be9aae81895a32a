package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/databeam/databeam/pkg/backupstore"
	"github.com/databeam/databeam/pkg/config"
	"github.com/databeam/databeam/pkg/hub"
	"github.com/databeam/databeam/pkg/policy"
	"github.com/databeam/databeam/pkg/sample"
	"github.com/databeam/databeam/pkg/telemetry"
	"github.com/databeam/databeam/pkg/transformplugin"
	"github.com/databeam/databeam/pkg/tree"
)

func newRunCommand() *cobra.Command {
	var (
		policyDir string
		dbPath    string
		demo      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the data hub",
		Long: `Run starts the data hub: it wires telemetry, opens the SQLite buffer
backup store, loads the Rego admission policy (if any), applies the
bring-up config, and then blocks until interrupted.`,
		Example: `  # Start the hub with a bring-up package
  databeamd run -c ./bringup

  # Start the hub with a policy directory and no demo traffic
  databeamd run -c ./bringup.cue --policy-dir ./policies --demo=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("telemetry shutdown failed")
				}
			}()
			if err := tel.StartMetricsServer(); err != nil {
				log.Warn().Err(err).Msg("metrics server failed to start")
			}

			store, err := backupstore.NewSQLiteStore(backupstore.Config{Path: dbPath})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("buffer store close failed")
				}
			}()

			policyEngine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return err
			}
			if policyDir != "" {
				if err := policyEngine.LoadPolicies(ctx, []string{policyDir}); err != nil {
					log.Warn().Err(err).Str("dir", policyDir).Msg("failed to load policy directory")
				}
			}

			plugins := transformplugin.NewRunner(ctx, nil)
			defer func() {
				if err := plugins.Close(context.Background()); err != nil {
					log.Error().Err(err).Msg("transform plugin runner close failed")
				}
			}()

			h := hub.New(hub.Config{
				Telemetry: tel,
				Policy:    policyEngine,
				Backend:   store,
				Plugins:   plugins,
			})
			defer h.Close()

			if configPath != "" {
				sources, err := sourcesFor(configPath)
				if err != nil {
					return err
				}
				spec, err := config.NewCUEParser().Load(ctx, sources, nil)
				if err != nil {
					return err
				}
				if err := h.Bringup(ctx, spec); err != nil {
					return err
				}
				log.Info().
					Int("namespaces", len(spec.Namespaces)).
					Int("inputs", len(spec.Inputs)).
					Int("outputs", len(spec.Outputs)).
					Int("observations", len(spec.Observations)).
					Msg("bring-up applied")
			}

			var stopDemo func()
			if demo {
				stopDemo = startDemo(ctx, h)
			}

			log.Info().Msg("data hub running, waiting for signal")
			<-ctx.Done()
			if stopDemo != nil {
				stopDemo()
			}
			log.Info().Msg("data hub shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&policyDir, "policy-dir", "", "directory of .rego admission policy files")
	cmd.Flags().StringVar(&dbPath, "db", "databeam.db", "SQLite buffer-backup database path")
	cmd.Flags().BoolVar(&demo, "demo", true, "run a demo producer/consumer pair against /demo/counter")

	return cmd
}

// startDemo brings up a throwaway namespace outside any bring-up config and
// runs a producer/consumer pair against it purely to exercise Push/Read end
// to end. It lives outside the core: the core loop itself stays
// single-threaded and callback-driven, these goroutines just call into it
// like any other client would. Returns a function that stops both
// goroutines and waits for them to exit.
func startDemo(ctx context.Context, h *hub.Hub) func() {
	const path = "/demo/counter"

	if err := h.Update(ctx, "demo", func(t *tree.Tree) error {
		_, err := t.GetInput(t.Root(), path, sample.Numeric, "count")
		return err
	}); err != nil {
		log.Warn().Err(err).Msg("failed to create demo input")
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		var n float64
		for {
			select {
			case <-done:
				return
			case t := <-ticker.C:
				n++
				if err := h.Push(path, sample.NewNumeric(float64(t.UnixNano())/1e9, n)); err != nil {
					log.Debug().Err(err).Msg("demo producer push failed")
				}
			}
		}
	}()

	consumerStopped := make(chan struct{})
	go func() {
		defer close(consumerStopped)
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s, err := h.Read(path)
				if err != nil {
					log.Debug().Err(err).Msg("demo consumer read failed")
					continue
				}
				log.Debug().Float64("value", s.Num()).Msg("demo consumer observed value")
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		<-consumerStopped
	}
}
