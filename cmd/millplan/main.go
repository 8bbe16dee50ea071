// millplan - production planner for the rotor spinning mill.
// Turns an order workbook into a line/shift schedule and its reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cyclo/millplan/internal/logger"
	"github.com/cyclo/millplan/pkg/cache"
	"github.com/cyclo/millplan/pkg/config"
	"github.com/cyclo/millplan/pkg/planner"
	"github.com/cyclo/millplan/pkg/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configFile string
	verbose    bool
)

var manager = config.NewManager()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "millplan",
	Short: "millplan - spinning mill production planner",
	Long: `millplan estimates machine hours for customer orders, batches them,
sequences color families and allocates the batches to line shifts.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return manager.Load(configFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (merged over discovered config files)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// app bundles the runtime every command that plans needs.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	cache    cache.Store
	planner  *planner.Planner
	shutdown func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := manager.Get()

	log, err := logger.New(cfg.Log.Mode, verbose)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		log.Warn("plan cache unavailable, using memory", "backend", cfg.Cache.Backend, "error", err)
		store = cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	p := planner.New(cfg,
		planner.WithCache(store),
		planner.WithLogger(log),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		cache:    store,
		planner:  p,
		shutdown: shutdown,
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("close cache", "error", err)
	}
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("flush traces", "error", err)
	}
	a.log.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
