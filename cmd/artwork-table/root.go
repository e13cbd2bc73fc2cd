package main

import (
	"fmt"

	"github.com/Sternrassler/artwork-table/pkg/client"
	"github.com/Sternrassler/artwork-table/pkg/config"
	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	cfg *config.Config

	baseURL   string
	userAgent string
	redisURL  string
	pageSize  int
	logLevel  string
	pretty    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "artwork-table",
		Short:        "Browse and select Art Institute of Chicago artworks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "API root (env ARTIC_BASE_URL)")
	flags.StringVar(&opts.userAgent, "user-agent", "", "AIC-User-Agent to send (env ARTIC_USER_AGENT)")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis for the shared request budget (env REDIS_URL)")
	flags.IntVar(&opts.pageSize, "page-size", 0, "rows per page (env PAGE_SIZE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	flags.BoolVar(&opts.pretty, "pretty", false, "human-readable logs (env LOG_PRETTY)")

	root.AddCommand(serveCmd(opts), exportCmd(opts), versionCmd())
	return root
}

// load reads the environment, applies explicitly set flags on top, and
// configures logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = o.userAgent
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL = o.redisURL
	}
	if flags.Changed("page-size") {
		cfg.PageSize = o.pageSize
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("pretty") {
		cfg.LogPretty = o.pretty
	}
	if flags.Changed("port") {
		port, _ := flags.GetString("port")
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	o.cfg = cfg
	return nil
}

// newAPIClient builds the upstream client. The Redis client is nil unless
// REDIS_URL is set; the caller closes both. cacheSize 0 sends every fetch
// upstream.
func newAPIClient(cfg *config.Config, cacheSize int) (*client.Client, *redis.Client, error) {
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		ropts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(ropts)
	}

	ccfg := client.DefaultConfig(cfg.UserAgent)
	ccfg.BaseURL = cfg.BaseURL
	ccfg.Timeout = cfg.RequestTimeout
	ccfg.Redis = rdb
	ccfg.RateLimit.RequestsPerWindow = cfg.RateLimitPerMinute
	ccfg.CacheSize = cacheSize
	ccfg.Retry.MaxAttempts = cfg.MaxRetries

	api, err := client.New(ccfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, fmt.Errorf("create api client: %w", err)
	}

	log.Info().
		Str("base_url", cfg.BaseURL).
		Str("user_agent", cfg.UserAgent).
		Bool("shared_budget", rdb != nil).
		Int("cache_size", cacheSize).
		Msg("API client initialized")

	return api, rdb, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "artwork-table %s\n", version)
		},
	}
}
