package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"loan-calculator/config"
	"loan-calculator/logger"
	"loan-calculator/repository"
)

var (
	configPath string
	logLevel   string
	apiBase    string

	cfg *config.AppConfig
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "loan-calculator",
	Short: "MUFATE G SACCO loan calculator",
	Long: `Estimate loan repayments against the SACCO loan API.

Pick a loan product, enter an amount, a period and a start date, and get the
summary and month-by-month repayment schedule back. Use it from the command
line (calc), interactively (tui) or as a web page (serve).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFromConfigFilePath(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if apiBase != "" {
			cfg.API.BaseURL = apiBase
		}

		// The terminal belongs to the UI; log to a file instead.
		if cmd.Name() == "tui" {
			log, err = logger.NewFile(cfg.Logging.Level, cfg.TUI.LogFile)
		} else {
			log, err = logger.New(cfg.Logging.Level)
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Loan API base URL (overrides LOAN_API_BASE)")

	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sandboxCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newGateway builds the loan API client with the catalog cache in front of
// it. The returned func releases the cache connection.
func newGateway(ctx context.Context) (repository.LoanGateway, func()) {
	api := repository.NewHTTPLoanGateway(cfg.API.BaseURL, cfg.API.Timeout, log)
	log.Debug("loan api", zap.String("base_url", cfg.API.BaseURL), zap.Duration("timeout", cfg.API.Timeout))

	var cache repository.CacheRepository = repository.NewMemoryCache()
	cleanup := func() {}

	if cfg.Cache.RedisAddr != "" {
		rc := repository.NewRedisCache(cfg.Cache.RedisAddr)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, using in-memory catalog cache",
				zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
			_ = rc.Close()
		} else {
			cache = rc
			cleanup = func() { _ = rc.Close() }
		}
	}

	return repository.NewCachedLoanGateway(api, cache, cfg.Cache.CatalogTTL, log), cleanup
}
