package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/vigil/pkg/ledger"
	"github.com/harun/vigil/pkg/policy"
	"github.com/harun/vigil/pkg/project"
)

var statusProjectDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project progress and recent iterations",
	Long:  `Show the feature progress and the most recent harness iterations for a project.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusProjectDir, "project-dir", ".", "project directory to inspect")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := project.New(statusProjectDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !state.HasStarted() {
		fmt.Fprintln(out, "Project has not been started yet")
		return nil
	}

	progress, err := state.ReadProgress()
	if err != nil {
		return fmt.Errorf("failed to read progress: %w", err)
	}
	fmt.Fprintf(out, "Progress: %s\n", progress.String())

	ledgerPath := filepath.Join(state.Dir, policy.RelativeDir, ledger.FileName)
	if _, err := os.Stat(ledgerPath); err != nil {
		fmt.Fprintln(out, "No iterations recorded")
		return nil
	}

	lgr, err := ledger.Open(ledgerPath, zerolog.Nop())
	if err != nil {
		return err
	}
	defer lgr.Close()

	total, err := lgr.Count()
	if err != nil {
		return err
	}
	records, err := lgr.Recent(10)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Iterations: %d\n", total)
	for _, rec := range records {
		line := fmt.Sprintf("  #%d %s %s (%s)",
			rec.Iteration,
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			rec.Outcome,
			formatDuration(rec.FinishedAt.Sub(rec.StartedAt)))
		if rec.Note != "" {
			line += " " + rec.Note
		}
		fmt.Fprintln(out, line)
	}

	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
