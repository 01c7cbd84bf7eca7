package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	transfercache "github.com/transfer-cache/transfer-cache"
	"github.com/transfer-cache/transfer-cache/transferstate"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	originFlag         string
	providerFlag       string
	allowFlag          string
	dbFilenameFlag     string
	ttlFlag            int
	verbosityTraceFlag bool
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to render from (overrides config)")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&providerFlag, "provider", "memory", "Warm store provider to use (memory, otter or sqlite)")
	flag.StringVar(&allowFlag, "allow", "", "Comma-separated URL prefixes eligible for caching (overrides config)")
	flag.StringVar(&dbFilenameFlag, "db", "transfer.db", "Warm store DB file name for the sqlite provider")
	flag.IntVar(&ttlFlag, "ttl", 60, "Warm store entry lifetime in seconds")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout})

	var config Config
	if configFilenameFlag != "" {
		fileConfig, err := getConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read config file")
		}
		config = fileConfig
	}

	// origin and allow-list flags override the config file;
	// the rest of the flags fill in what the file leaves unset
	if originFlag != "" {
		config.Origin = originFlag
	}
	if allowFlag != "" {
		config.Allow = strings.Split(allowFlag, ",")
	}
	if config.Port <= 0 {
		config.Port = portFlag
	}
	if config.Provider == "" {
		config.Provider = providerFlag
	}
	if config.DB == "" {
		config.DB = dbFilenameFlag
	}
	if config.TTL <= 0 {
		config.TTL = ttlFlag
	}

	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid origin URL")
	}

	// use configured warm store provider
	ttl := time.Duration(config.TTL) * time.Second
	var shared transferstate.Store
	switch config.Provider {
	case "memory":
		// per-render state only, nothing shared across renders
	case "otter":
		warm, err := transferstate.NewOtter(10_000, ttl)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create warm store")
		}
		shared = warm
	case "sqlite":
		warm, err := transferstate.NewSQLite(config.DB, ttl)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not open warm store db")
		}
		defer warm.Close()
		shared = warm
	default:
		log.Fatal().Msgf("Unsupported warm store provider: %s", config.Provider)
	}

	renderer := &renderer{
		origin:    originURL,
		allowList: config.Allow,
		shared:    shared,
		metrics:   transfercache.NewMetrics(prometheus.DefaultRegisterer),
	}

	r := chi.NewRouter()
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Dur("duration", duration).
			Msg("Rendered page")
	}))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/*", renderer.ServeHTTP)

	addr := fmt.Sprintf(":%d", config.Port)
	log.Info().Str("origin", originURL.String()).Msgf("Listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
