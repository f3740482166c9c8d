package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mendhq/mend/pkg/playbook"
	"github.com/mendhq/mend/pkg/storage"
	"github.com/mendhq/mend/pkg/worker"
)

// Playbook commands
var playbookCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Work with recovery playbooks",
}

var playbookValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a playbook file",
	Long: `Parse, validate and compile a playbook file, including environment
variable interpolation against the current environment. Exits non-zero
if the file would be rejected at daemon startup.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		books, err := playbook.Parse(data, playbook.OSEnv)
		if err != nil {
			return fmt.Errorf("invalid playbook file: %v", err)
		}

		fmt.Printf("✓ %s is valid (%d services)\n", args[0], len(books))
		for name, pb := range books {
			fmt.Printf("  %s: %d steps, maxRetries %d\n", name, len(pb.Steps), pb.MaxRetries)
		}
		return nil
	},
}

// Fleet commands
var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Work with worker fleet files",
}

var fleetValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a fleet file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fleet, err := worker.LoadFleet(args[0])
		if err != nil {
			return fmt.Errorf("invalid fleet file: %v", err)
		}
		fmt.Printf("✓ %s is valid (%d workers)\n", args[0], fleet.Len())
		return nil
	},
}

// History command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent cycles and recovery outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.NewBoltStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open history store: %v", err)
		}
		defer store.Close()

		cycles, err := store.ListCycleStats(limit)
		if err != nil {
			return err
		}
		fmt.Printf("Cycles (%d):\n", len(cycles))
		for _, c := range cycles {
			fmt.Printf("  #%d %s nodes=%d vulns=%d actions=%d suppressed=%d duration=%s\n",
				c.Cycle, c.StartedAt.Format(time.RFC3339), c.NodesObserved,
				c.VulnerabilitiesDetected, c.ActionsTaken,
				c.ActionsSuppressedByCooldown, c.Duration.Round(time.Millisecond))
		}

		recoveries, err := store.ListRecoveries(limit)
		if err != nil {
			return err
		}
		fmt.Printf("Recoveries (%d):\n", len(recoveries))
		for _, r := range recoveries {
			line := fmt.Sprintf("  %s %s status=%s attempts=%d steps=%d duration=%s",
				r.FinishedAt.Format(time.RFC3339), r.Service, r.Status,
				r.Attempts, r.StepsRun, r.Duration.Round(time.Millisecond))
			if r.LastError != "" {
				line += " error=" + r.LastError
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	playbookCmd.AddCommand(playbookValidateCmd)
	fleetCmd.AddCommand(fleetValidateCmd)

	historyCmd.Flags().String("data-dir", "./mend-data", "Data directory for cycle history")
	historyCmd.Flags().Int("limit", 20, "Maximum entries to show")
}
