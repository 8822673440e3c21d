// Package main is the CLI entry point for screentime.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"screentime/internal/advisor"
	"screentime/internal/config"
	"screentime/internal/domain"
	"screentime/internal/infra"
	"screentime/internal/report"
	"screentime/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	configPath string
	jsonOutput bool
	exportOut  string
	resetYes   bool
	resetAll   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screentime",
	Short: "Parental screen-time dashboard with simulated usage timers",
	Long: `screentime tracks simulated per-application screen time for a child.
Start and stop usage timers, enforce per-app and daily limits, watch a
live dashboard, export a CSV report, and ask the built-in advisor for
screen-time guidance.

Usage is simulated wall-clock time: a started timer keeps accruing in
the background until you stop it, even between commands.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start <app>",
	Short: "Start the usage timer for an app",
	Long: `Starts accrual for the given app. Fails if the app has already
reached its limit. The timer keeps running between commands until
'screentime stop' is issued.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop <app>",
	Short: "Stop the usage timer for an app",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show usage and limit status for all apps",
	RunE:  runStatus,
}

var limitCmd = &cobra.Command{
	Use:   "limit <app> <minutes>",
	Short: "Set the per-app limit in minutes (0 = unlimited)",
	Long: `Updates the app's limit. A running app over the new limit is not
stopped immediately; the next accrual tick locks it.`,
	Args: cobra.ExactArgs(2),
	RunE: runLimit,
}

var totalLimitCmd = &cobra.Command{
	Use:   "total-limit <minutes>",
	Short: "Set the aggregate daily limit in minutes (0 = unlimited)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTotalLimit,
}

var resetCmd = &cobra.Command{
	Use:   "reset [app]",
	Short: "Reset usage for one app (or --all for every app)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReset,
}

var resetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Clear all usage data and settings, back to defaults",
	RunE:  runResetAll,
}

var lockAllCmd = &cobra.Command{
	Use:   "lock-all",
	Short: "Lock every limited app by pinning usage to its limit",
	RunE:  runLockAll,
}

var unlockAllCmd = &cobra.Command{
	Use:   "unlock-all",
	Short: "Stop all timers and clamp usage to the limits",
	RunE:  runUnlockAll,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the usage report as CSV",
	RunE:  runExport,
}

var adviceCmd = &cobra.Command{
	Use:   "advice [question...]",
	Short: "Ask the built-in advisor a screen-time question",
	RunE:  runAdvice,
}

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Print a random digital-wellbeing tip",
	Run:   runTip,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard, refreshed every second",
	Long: `Renders the dashboard once a second while timers accrue. Ctrl-C
stops every running timer, persists the final state and exits.`,
	RunE: runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default ~/.screentime/config.yaml)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default screentime_report_<child>_<date>.csv)")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Reset usage for every app")
	resetAllCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(limitCmd)
	rootCmd.AddCommand(totalLimitCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(resetAllCmd)
	rootCmd.AddCommand(lockAllCmd)
	rootCmd.AddCommand(unlockAllCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(adviceCmd)
	rootCmd.AddCommand(tipCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// session bundles everything a command needs against one engine.
type session struct {
	cfg    *config.Config
	store  domain.LedgerStore
	engine *usecase.Engine
	logger *zap.Logger
}

// openSession loads config, opens the configured store and builds the
// engine. tickPeriod 0 is used by one-shot commands: the process
// exits right away, so there is nothing for background ticks to do;
// accrual is recomputed on the next invocation instead.
func openSession(tickPeriod time.Duration, notifier domain.Notifier) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger := createLogger(cfg)

	var store domain.LedgerStore
	switch cfg.Storage.Backend {
	case config.BackendEncrypted:
		key, err := infra.EnsureKey(infra.NewFileKeyProvider(cfg.DataDir))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare encryption key: %w", err)
		}
		store, err = infra.NewEncryptedStore(cfg.DataDir, key)
		if err != nil {
			return nil, err
		}
	default:
		store, err = infra.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	engine := usecase.NewEngine(
		usecase.EngineConfig{TickPeriod: tickPeriod},
		store,
		domain.SystemClock{},
		notifier,
		cfg.NewDefaultLedger,
		logger,
	)

	return &session{cfg: cfg, store: store, engine: engine, logger: logger}, nil
}

func (s *session) close() {
	s.engine.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = s.logger.Sync()
}

func runStart(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	id := args[0]
	if err := s.engine.Start(id); err != nil {
		return err
	}

	app := s.engine.Snapshot().App(id)
	color.Green("%s timer started (used %s)", app.Label, usecase.FormatHMS(app.UsedSeconds))
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	id := args[0]
	if err := s.engine.Stop(id); err != nil {
		return err
	}

	app := s.engine.Snapshot().App(id)
	color.Green("%s timer stopped at %s", app.Label, usecase.FormatHMS(app.UsedSeconds))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	renderDashboard(usecase.Project(s.engine.Snapshot()))
	return nil
}

func runLimit(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("minutes %q: %w", args[1], domain.ErrInvalidInput)
	}

	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.engine.SetLimit(args[0], minutes); err != nil {
		return err
	}
	color.Green("%s limit set to %g minutes", args[0], minutes)
	return nil
}

func runTotalLimit(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("minutes %q: %w", args[0], domain.ErrInvalidInput)
	}

	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.engine.SetTotalLimit(minutes); err != nil {
		return err
	}
	color.Green("Total daily limit set to %g minutes", minutes)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetAll && len(args) == 0 {
		return fmt.Errorf("app id required (or --all)")
	}

	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if resetAll {
		s.engine.ResetAllUsage()
		color.Green("All app usage reset")
		return nil
	}
	if err := s.engine.ResetUsage(args[0]); err != nil {
		return err
	}
	color.Green("%s usage reset", args[0])
	return nil
}

func runResetAll(cmd *cobra.Command, args []string) error {
	if !resetYes && !confirm("Clear all usage data and settings?") {
		fmt.Println("Aborted.")
		return nil
	}

	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	s.engine.ResetAll()
	color.Green("All data reset to defaults")
	return nil
}

func runLockAll(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	s.engine.LockAll()
	color.Green("All applications locked")
	return nil
}

func runUnlockAll(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	s.engine.UnlockAll()
	color.Green("All applications unlocked")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(0, nil)
	if err != nil {
		return err
	}
	defer s.close()

	snapshot := s.engine.Snapshot()
	now := time.Now()

	out := exportOut
	if out == "" {
		out = report.FileName(snapshot.ChildName, now)
	}
	if err := os.WriteFile(out, report.CSV(snapshot, now), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	color.Green("Report exported to %s", out)
	return nil
}

func runAdvice(cmd *cobra.Command, args []string) error {
	a := advisor.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	if len(args) == 0 {
		fmt.Println(a.Greeting())
		return nil
	}
	fmt.Println(a.Advise(strings.Join(args, " ")))
	return nil
}

func runTip(cmd *cobra.Command, args []string) {
	a := advisor.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	fmt.Println(a.Tip())
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(time.Second, &consoleNotifier{})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close store", zap.Error(err))
		}
		_ = s.logger.Sync()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	clearScreen()
	renderDashboard(usecase.Project(s.engine.Snapshot()))
	fmt.Println("\nPress Ctrl-C to stop all timers and exit.")

	for {
		select {
		case <-sigChan:
			s.logger.Info("received shutdown signal")
			s.engine.Shutdown()
			fmt.Println("\nAll timers stopped, usage saved.")
			return nil

		case <-refresh.C:
			clearScreen()
			renderDashboard(usecase.Project(s.engine.Snapshot()))
			fmt.Println("\nPress Ctrl-C to stop all timers and exit.")
		}
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("screentime %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// renderDashboard prints the projected view as a small table.
func renderDashboard(vm domain.ViewModel) {
	bold := color.New(color.Bold)

	bold.Printf("=== Screen Time - %s ===\n\n", vm.ChildName)

	for _, a := range vm.Apps {
		var status string
		switch a.Status {
		case domain.StatusRunning:
			status = color.GreenString("%-8s", a.Status)
		case domain.StatusLocked:
			status = color.RedString("%-8s", a.Status)
		default:
			status = fmt.Sprintf("%-8s", a.Status)
		}

		limit := "unlimited"
		if a.LimitSeconds > 0 {
			limit = fmt.Sprintf("%d min", a.LimitSeconds/60)
		}

		fmt.Printf("  %-12s %s  %s / %s\n",
			a.Label, status, usecase.FormatHMS(a.UsedSeconds), limit)
	}

	fmt.Println()
	totalLimit := "unlimited"
	if vm.TotalLimitSeconds > 0 {
		totalLimit = fmt.Sprintf("%d min", vm.TotalLimitSeconds/60)
	}
	line := fmt.Sprintf("Total: %s / %s (%d%%)",
		usecase.FormatHMS(vm.TotalUsedSeconds), totalLimit, vm.UsedPercent)
	switch {
	case vm.UsedPercent >= 80:
		color.Red(line)
	case vm.UsedPercent >= 60:
		color.Yellow(line)
	default:
		fmt.Println(line)
	}
}

// consoleNotifier surfaces engine notifications during watch.
// Routine update ticks are deliberately silent; the refresh loop
// already repaints the dashboard.
type consoleNotifier struct{}

func (consoleNotifier) Notify(n domain.Notification) {
	switch n.Kind {
	case domain.NoticeLimitReached:
		color.Red("\n!! %s", n.Message)
	case domain.NoticeWarning:
		color.Yellow("\nwarning: %s", n.Message)
	}
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func createLogger(cfg *config.Config) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{filepath.Join(cfg.DataDir, cfg.Logging.File)}
	zcfg.ErrorOutputPaths = zcfg.OutputPaths
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
