package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"overseer/internal/config"
	"overseer/internal/engine"
	"overseer/internal/expertise"
	"overseer/internal/logging"
	"overseer/internal/prompt"
	"overseer/internal/session"
	"overseer/internal/store"
)

// resultMarker precedes the JSON result on stdout so wrapping scripts can
// find it in mixed output.
const resultMarker = "###OVERSEER_RESULT###"

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	modeFlag   string
	timeout    time.Duration

	// run flags
	persist    bool
	sessionID  string
	delegate   bool
	noSecurity bool
	noLearning bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "overseer",
	Short: "overseer - autonomous coding task orchestrator",
	Long: `overseer runs coding tasks through an external agent engine with an
Act-Learn-Reuse lifecycle: accumulated expertise conditions each run, a
safety validator gates side-effecting actions, and successful runs feed
their learnings back into per-mode expertise files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Execute a task through the Act-Learn-Reuse lifecycle",
	Long: `Runs a single task. The task is enriched with the selected mode's
expert prompt and any accumulated expertise before execution, and a
self-reflection prompt is appended unless learning is disabled.

The structured result is printed as JSON after a marker line; the exit
code mirrors the run's success.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !prompt.Valid(modeFlag) {
			return fmt.Errorf("unknown mode %q (valid: %v)", modeFlag, prompt.Modes())
		}
		return executeRequest(cmd.Context(), session.RunRequest{
			Task:            strings.Join(args, " "),
			Workspace:       workspace,
			Mode:            prompt.Mode(modeFlag),
			Timeout:         timeout,
			Persist:         persist,
			SessionID:       sessionID,
			Delegate:        delegate,
			DisableSecurity: noSecurity,
			DisableLearning: noLearning,
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Run a security vulnerability scan of a codebase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeRequest(cmd.Context(), session.VulnerabilityScanRequest(args[0]))
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [path]",
	Short: "Run a code review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		focus, _ := cmd.Flags().GetString("focus")
		return executeRequest(cmd.Context(), session.CodeReviewRequest(args[0], focus))
	},
}

var testgenCmd = &cobra.Command{
	Use:   "testgen [path]",
	Short: "Generate tests for a codebase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coverage, _ := cmd.Flags().GetInt("coverage")
		return executeRequest(cmd.Context(), session.TestGenerationRequest(args[0], coverage))
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs [path]",
	Short: "Generate developer documentation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, _ := cmd.Flags().GetString("type")
		return executeRequest(cmd.Context(), session.DocumentationRequest(args[0], docType))
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate [mode]",
	Short: "Promote recurring session insights into permanent expertise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !prompt.Valid(args[0]) {
			return fmt.Errorf("unknown mode %q (valid: %v)", args[0], prompt.Modes())
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		exp, err := expertise.NewStore(cfg.ExpertiseDir)
		if err != nil {
			return err
		}
		stats, err := exp.Consolidate(args[0])
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show accumulated expertise per mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		exp, err := expertise.NewStore(cfg.ExpertiseDir)
		if err != nil {
			return err
		}
		return printJSON(exp.Stats())
	},
}

// executeRequest wires the full stack, runs the request, and reports the
// result. The process exit code mirrors the run's success.
func executeRequest(ctx context.Context, req session.RunRequest) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if timeout > 0 {
		req.Timeout = timeout
	}

	ws := req.Workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	if err := logging.Initialize(ws); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}

	exp, err := expertise.NewStore(cfg.ExpertiseDir)
	if err != nil {
		return err
	}

	var sessions *store.SessionStore
	if req.Persist {
		sessions, err = store.NewSessionStore(cfg.SessionDB)
		if err != nil {
			return err
		}
		defer sessions.Close()
	}

	runner := session.NewRunner(engine.NewGenAIEngine(), exp, sessions, cfg)

	logger.Info("executing task",
		zap.String("mode", string(req.Mode)),
		zap.String("workspace", ws),
		zap.Bool("persist", req.Persist))

	result, err := runner.Run(ctx, req)
	if err != nil {
		// Configuration failures still get a structured result so callers
		// can parse the error.
		fmt.Println(resultMarker)
		_ = printJSON(result)
		return err
	}

	fmt.Println(resultMarker)
	if err := printJSON(result); err != nil {
		return err
	}

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "execution timeout (default: from config)")

	runCmd.Flags().StringVarP(&modeFlag, "mode", "m", string(prompt.ModeDeveloper), "execution mode")
	runCmd.Flags().BoolVar(&persist, "persist", false, "persist the session for resumption")
	runCmd.Flags().StringVar(&sessionID, "session-id", "", "resume a specific session ID")
	runCmd.Flags().BoolVar(&delegate, "delegate", false, "make sub-agent delegation available")
	runCmd.Flags().BoolVar(&noSecurity, "no-security", false, "disable action validation")
	runCmd.Flags().BoolVar(&noLearning, "no-learning", false, "disable expertise reuse and capture")

	reviewCmd.Flags().String("focus", "", "review focus area")
	testgenCmd.Flags().Int("coverage", 80, "coverage target percentage")
	docsCmd.Flags().String("type", "", "documentation type (api, readme, architecture)")

	rootCmd.AddCommand(runCmd, scanCmd, reviewCmd, testgenCmd, docsCmd, consolidateCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
