package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/vigil/internal/config"
	"github.com/harun/vigil/internal/logger"
	"github.com/harun/vigil/internal/metrics"
	"github.com/harun/vigil/pkg/agent"
	"github.com/harun/vigil/pkg/browser"
	"github.com/harun/vigil/pkg/execguard"
	"github.com/harun/vigil/pkg/ledger"
	"github.com/harun/vigil/pkg/orchestrator"
	"github.com/harun/vigil/pkg/policy"
	"github.com/harun/vigil/pkg/project"
	"github.com/harun/vigil/pkg/prompt"
	"github.com/harun/vigil/pkg/toolkit"
	"github.com/harun/vigil/pkg/transcript"
)

var (
	projectDir    string
	promptsDir    string
	maxIterations int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the unattended coding loop on a project",
	Long: `Run opens agent sessions against the project back to back until
interrupted. Ctrl-C stops cleanly between sessions; the run can be
resumed later because all progress lives in the project directory.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&projectDir, "project-dir", ".", "project directory the agent works in")
	runCmd.Flags().StringVar(&promptsDir, "prompts-dir", "./prompts", "directory holding the prompt files")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "stop after N sessions (0 = run until interrupted)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if maxIterations > 0 {
		cfg.Loop.MaxIterations = maxIterations
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: true,
	})
	if err != nil {
		return err
	}
	defer lg.Close()
	log := lg.GetZerolog()

	if err := cfg.Validate(); err != nil {
		return err
	}

	state, err := project.New(projectDir)
	if err != nil {
		return err
	}
	prompts, err := prompt.NewStore(promptsDir)
	if err != nil {
		return err
	}

	allowlist, err := execguard.NewAllowlist(cfg.Guard.AllowlistPath, log)
	if err != nil {
		return err
	}

	browserServer := browser.NewServer(cfg.Browser, log)
	defer browserServer.Close()

	registry := toolkit.NewRegistry(log)
	coreTools, err := toolkit.CoreTools(toolkit.Options{
		Root:      state.Dir,
		Validator: allowlist,
	})
	if err != nil {
		return err
	}
	if err := registry.RegisterAll(coreTools); err != nil {
		return err
	}
	if err := registry.RegisterAll(browser.Tools(browserServer)); err != nil {
		return err
	}

	provider, err := agent.NewProvider(cfg.Agent.Provider, cfg.Agent.APIKey)
	if err != nil {
		return err
	}
	runtime, err := agent.NewRuntime(agent.RuntimeConfig{
		Provider:     provider,
		Registry:     registry,
		Model:        cfg.Agent.Model,
		SystemPrompt: cfg.Agent.SystemPrompt,
		MaxTokens:    cfg.Agent.MaxTokens,
		Temperature:  cfg.Agent.Temperature,
		MaxTurns:     cfg.Agent.MaxTurns,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	// The iteration ledger lives next to the policy file inside the
	// project's harness state directory.
	stateDir := filepath.Join(state.Dir, policy.RelativeDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	iterLedger, err := ledger.Open(filepath.Join(stateDir, ledger.FileName), log)
	if err != nil {
		return err
	}
	defer iterLedger.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
		registry.SetObserver(func(name string, res toolkit.Result) {
			status := "success"
			if res.IsError {
				status = "error"
			}
			m.ToolExecutionsTotal.WithLabelValues(name, status).Inc()
			if name == "bash" && strings.Contains(strings.ToLower(res.Content), "blocked") {
				m.CommandsBlockedTotal.Inc()
			}
		})
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Service:           runtime,
		Classifier:        transcript.NewClassifier(os.Stdout, log),
		Prompts:           prompts,
		Project:           state,
		Policies:          policy.NewBuilder(log),
		Ledger:            iterLedger,
		Metrics:           m,
		AutoContinueDelay: time.Duration(cfg.Loop.AutoContinueDelaySeconds) * time.Second,
		FallbackSleep:     time.Duration(cfg.Loop.FallbackSleepMinutes) * time.Minute,
		ResetBuffer:       time.Duration(cfg.Loop.ResetBufferSeconds) * time.Second,
		ErrorRetryDelay:   time.Duration(cfg.Loop.ErrorRetryDelaySeconds) * time.Second,
		MaxIterations:     cfg.Loop.MaxIterations,
		Logger:            log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("project", state.Dir).
		Str("model", cfg.Agent.Model).
		Str("run_id", orch.RunID()).
		Msg("Starting unattended run")

	err = orch.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Interrupted; run the same command again to resume")
		return nil
	}
	return err
}
