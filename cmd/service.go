package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/uvalib/virgo4-history-suggestor-ws/history"
	"github.com/uvalib/virgo4-history-suggestor-ws/preconnect"
	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
	"github.com/uvalib/virgo4-history-suggestor-ws/telemetry"
)

// ServiceContext contains common data used by all handlers
type ServiceContext struct {
	config   *ServiceConfig
	provider *suggest.Provider
	memory   *history.Memory
	solr     *history.Solr
	warmer   *preconnect.Warmer
	clicks   *clickTable
}

// InitializeService will initialize the service context based on the config parameters.
// Metrics are registered with reg.
func InitializeService(cfg *ServiceConfig, reg prometheus.Registerer) (*ServiceContext, error) {
	log.Info().Msg("Initializing Service")

	svc := ServiceContext{
		config: cfg,
		memory: history.NewMemory(),
		clicks: newClickTable(cfg.ClickTTL, cfg.ClickCapacity),
	}

	if cfg.SeedFile != "" {
		if err := svc.memory.LoadSeed(cfg.SeedFile); err != nil {
			return nil, err
		}
	}

	store := history.Merged{svc.memory}

	if cfg.Solr.Host != "" {
		solr, err := history.NewSolr(cfg.Solr)
		if err != nil {
			return nil, err
		}
		svc.solr = solr
		store = append(store, solr)
	}

	emitter := suggest.NewEmitter()

	counter, err := telemetry.NewCounter(reg)
	if err != nil {
		return nil, fmt.Errorf("register interaction metrics: %w", err)
	}
	emitter.Register(counter)
	emitter.Register(telemetry.NewLogger())

	opts := []suggest.Option{
		suggest.WithMaxSuggestions(cfg.MaxSuggestions),
		suggest.WithEmitter(emitter),
	}

	if cfg.Preconnect {
		svc.warmer = preconnect.New(preconnect.Config{
			Timeout:    cfg.PreconnectTimeout,
			Window:     cfg.PreconnectWindow,
			Registerer: reg,
		})
		opts = append(opts, suggest.WithConnector(svc.warmer))
	}

	svc.provider = suggest.NewProvider(store, history.NewLoadURLUseCase(svc.memory), opts...)

	return &svc, nil
}

// IgnoreHandler is a dummy to handle certain browser requests without warnings (e.g. favicons)
func (svc *ServiceContext) IgnoreHandler(c *gin.Context) {
}

// VersionHandler reports the version of the service
func (svc *ServiceContext) VersionHandler(c *gin.Context) {
	build := "missing"

	files, _ := filepath.Glob("buildtag.*")
	if len(files) == 1 {
		build = strings.Replace(files[0], "buildtag.", "", 1)
	}

	vMap := make(map[string]string)

	vMap["build"] = build
	vMap["go_version"] = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	vMap["git_commit"] = GitCommit
	vMap["stores"] = strings.Join(svc.storeNames(), ",")
	vMap["preconnect"] = fmt.Sprintf("%t", svc.warmer != nil)
	vMap["max_suggestions"] = fmt.Sprintf("%d", svc.provider.MaxSuggestions())

	c.JSON(http.StatusOK, vMap)
}

// storeNames lists the history backends in query order
func (svc *ServiceContext) storeNames() []string {
	names := []string{"memory"}
	if svc.solr != nil {
		names = append(names, "solr")
	}
	return names
}

// HealthCheckHandler reports the health of the service
func (svc *ServiceContext) HealthCheckHandler(c *gin.Context) {
	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	hcMap := make(map[string]hcResp)

	status := http.StatusOK

	hcMap["history"] = hcResp{Healthy: true, Message: fmt.Sprintf("%d entries", svc.memory.Len())}

	if svc.solr != nil {
		hcSolr := hcResp{Healthy: true}

		if err := svc.solr.Ping(c.Request.Context()); err != nil {
			status = http.StatusInternalServerError
			hcSolr = hcResp{Healthy: false, Message: err.Error()}
		}

		hcMap["solr"] = hcSolr
	}

	c.JSON(status, hcMap)
}
