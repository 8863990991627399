// Command memctlsim drives the gddrmc CORE from a YAML configuration for
// a fixed number of cycles; it submits no client requests of its own and
// reads no request trace. It is plumbing, not CORE: the
// correctness surface this repository is about lives entirely in
// dram, splitter, scheduler and mc (spec.md §1 non-goals).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gddrmc/bus"
	"gddrmc/corefault"
	"gddrmc/mc"
	"gddrmc/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Controller types.ControllerConfig `yaml:"controller"`
}

func loadConfig(path string) (types.ControllerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ControllerConfig{}, fmt.Errorf("reading config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return types.ControllerConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := fc.Controller.Validate(); err != nil {
		return types.ControllerConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return fc.Controller, nil
}

func newRunCmd(log *logrus.Logger) *cobra.Command {
	var configPath string
	var cycles uint64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the memory-controller CORE for a fixed number of cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			runID := uuid.New()
			sink := corefault.Recorder{}
			conn := bus.NewBus(256).NewConnection("memctlsim")
			entry := log.WithField("run_id", runID.String())

			ctrl, err := mc.NewController(cfg, conn, &sink, runID, entry)
			if err != nil {
				return fmt.Errorf("constructing controller: %w", err)
			}

			for cycle := uint64(0); cycle < cycles; cycle++ {
				ctrl.Clock(cycle)
			}
			entry.WithField("cycles", cycles).Info("run complete")
			if len(sink.Faults) > 0 {
				entry.WithField("fault_count", len(sink.Faults)).Warn("run ended with recorded faults")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to controller YAML config")
	cmd.Flags().Uint64Var(&cycles, "cycles", 0, "number of cycles to drive")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("cycles")
	return cmd
}

func newSnapshotInspectCmd(log *logrus.Logger) *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "snapshot-inspect",
		Short: "Print a JSON summary of a core-dump snapshot's checksums and bank counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(snapshotPath)
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}
			var snap mc.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return fmt.Errorf("parsing snapshot: %w", err)
			}
			summary := make([]map[string]any, len(snap.Channels))
			for i, ch := range snap.Channels {
				summary[i] = map[string]any{
					"channel":  i,
					"banks":    len(ch.Banks),
					"checksum": ch.Checksum,
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"cycle":          snap.Cycle,
				"requests_in_use": snap.RequestsInUse,
				"service_depth":  snap.ServiceDepth,
				"system_memory":  snap.SystemMemory,
				"channels":       summary,
			})
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "path to a JSON-encoded mc.Snapshot")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := &cobra.Command{
		Use:   "memctlsim",
		Short: "GDDR memory-controller cycle-accurate simulator driver",
	}
	root.AddCommand(newRunCmd(log))
	root.AddCommand(newSnapshotInspectCmd(log))

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("memctlsim failed")
	}
}
