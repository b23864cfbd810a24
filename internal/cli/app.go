// Package cli implements the modelcache operator command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-model-cache/cache"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// EnvPrefix is the prefix of every configuration variable, e.g. MODELCACHE_REDIS_URL.
const EnvPrefix = "MODELCACHE"

type globalOptions struct {
	envFile  string
	redisURL string
	prefix   string
	verbose  bool
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// New creates the CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "modelcache",
		Short: "Inspect and maintain a model cache store",
		Long: `modelcache operates on the store behind a read-through model cache.

Configuration is read from MODELCACHE_* environment variables, optionally
loaded from a .env file first. Without MODELCACHE_REDIS_URL the commands run
against an empty in-process store, which is only useful for hashing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if app.opts.verbose {
				level = slog.LevelDebug
			}
			app.logger = slog.New(slog.NewTextHandler(app.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	flags := app.root.PersistentFlags()
	flags.StringVar(&app.opts.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	flags.StringVar(&app.opts.redisURL, "redis-url", "", "Redis URL, overrides MODELCACHE_REDIS_URL")
	flags.StringVar(&app.opts.prefix, "key-prefix", "", "Store key prefix, overrides MODELCACHE_KEY_PREFIX")
	flags.BoolVarP(&app.opts.verbose, "verbose", "v", false, "Enable debug logging")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newHashCmd(),
		app.newInspectCmd(),
		app.newFlushCmd(),
		app.newConfigCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig reads the dotenv file, the environment and the flag overrides.
func (a *App) loadConfig() (cache.Config, error) {
	if a.opts.envFile != "" {
		if err := godotenv.Load(a.opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cache.Config{}, fmt.Errorf("failed to load %s: %w", a.opts.envFile, err)
		}
	}

	cfg, err := cache.LoadConfig(EnvPrefix)
	if err != nil {
		return cache.Config{}, err
	}
	if a.opts.redisURL != "" {
		cfg.RedisURL = a.opts.redisURL
	}
	if a.opts.prefix != "" {
		cfg.KeyPrefix = a.opts.prefix
	}
	return cfg, cfg.Validate()
}

// openBackend loads configuration and connects to the configured store.
func (a *App) openBackend(ctx context.Context) (*cache.Backend, cache.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, cache.Config{}, err
	}
	backend, err := cache.NewBackend(ctx, cfg, a.logger)
	if err != nil {
		return nil, cache.Config{}, err
	}
	return backend, cfg, nil
}
