package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// GitCommit is the git commit used for this build; supplied at compile time
var GitCommit string

/**
 * Main entry point for the web service
 */
func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("===> virgo4-history-suggestor-ws starting up <===")

	cfg := LoadConfiguration()

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	svc, err := InitializeService(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	p := ginprometheus.NewPrometheus("gin")

	// roundabout setup of /metrics endpoint to avoid double-gzip of response
	router.Use(p.HandlerFunc())
	h := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}))

	router.GET(p.MetricsPath, func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})

	if cfg.Pprof {
		pprof.Register(router)
	}

	svc.registerRoutes(router)

	portStr := fmt.Sprintf(":%s", cfg.ListenPort)
	log.Info().Msgf("Start service on %s", portStr)

	log.Fatal().Err(router.Run(portStr)).Msg("service stopped")
}

// registerRoutes attaches the service endpoints to router
func (svc *ServiceContext) registerRoutes(router *gin.Engine) {
	router.GET("/favicon.ico", svc.IgnoreHandler)

	router.GET("/version", svc.VersionHandler)
	router.GET("/healthcheck", svc.HealthCheckHandler)

	if api := router.Group("/api"); api != nil {
		api.POST("/suggest", svc.SuggestHandler)
		api.POST("/click/:token", svc.ClickHandler)
		api.POST("/visit", svc.VisitHandler)
	}
}
