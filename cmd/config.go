package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/uvalib/virgo4-history-suggestor-ws/history"
	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

const envPrefix = "VIRGO4_HISTORY_SUGGESTOR_WS_"

// ServiceConfig defines all of the service configuration parameters
type ServiceConfig struct {
	ListenPort        string
	MaxSuggestions    int
	SeedFile          string
	Solr              history.SolrConfig
	Preconnect        bool
	PreconnectTimeout time.Duration
	PreconnectWindow  time.Duration
	ClickTTL          time.Duration
	ClickCapacity     int
	Pprof             bool
	Verbose           bool
}

// fileConfig is the layout of the optional YAML configuration file
type fileConfig struct {
	Service struct {
		Port    string `yaml:"port"`
		Pprof   string `yaml:"pprof"`
		Verbose string `yaml:"verbose"`
	} `yaml:"service"`
	Suggestions struct {
		Max           string `yaml:"max"`
		ClickTTL      string `yaml:"click_ttl"`
		ClickCapacity string `yaml:"click_capacity"`
	} `yaml:"suggestions"`
	History struct {
		SeedFile string `yaml:"seed_file"`
	} `yaml:"history"`
	Solr struct {
		Host        string `yaml:"host"`
		Core        string `yaml:"core"`
		Handler     string `yaml:"handler"`
		ConnTimeout string `yaml:"conn_timeout"`
		ReadTimeout string `yaml:"read_timeout"`
	} `yaml:"solr"`
	Preconnect struct {
		Enabled string `yaml:"enabled"`
		Timeout string `yaml:"timeout"`
		Window  string `yaml:"window"`
	} `yaml:"preconnect"`
}

// settings flattens the file into the same keys used for environment variables
func (fc fileConfig) settings() map[string]string {
	return map[string]string{
		"LISTEN_PORT":        fc.Service.Port,
		"PPROF":              fc.Service.Pprof,
		"VERBOSE":            fc.Service.Verbose,
		"MAX_SUGGESTIONS":    fc.Suggestions.Max,
		"CLICK_TTL":          fc.Suggestions.ClickTTL,
		"CLICK_CAPACITY":     fc.Suggestions.ClickCapacity,
		"SEED_FILE":          fc.History.SeedFile,
		"SOLR_HOST":          fc.Solr.Host,
		"SOLR_CORE":          fc.Solr.Core,
		"SOLR_HANDLER":       fc.Solr.Handler,
		"SOLR_CONN_TIMEOUT":  fc.Solr.ConnTimeout,
		"SOLR_READ_TIMEOUT":  fc.Solr.ReadTimeout,
		"PRECONNECT":         fc.Preconnect.Enabled,
		"PRECONNECT_TIMEOUT": fc.Preconnect.Timeout,
		"PRECONNECT_WINDOW":  fc.Preconnect.Window,
	}
}

// configSource resolves a setting from the environment first, then the config file
type configSource struct {
	lookupEnv func(string) (string, bool)
	file      map[string]string
}

func (cs configSource) get(name string) (string, bool) {
	if val, set := cs.lookupEnv(envPrefix + name); set {
		return strings.TrimSpace(val), true
	}
	if val := strings.TrimSpace(cs.file[name]); val != "" {
		return val, true
	}
	return "", false
}

func (cs configSource) ensureSetAndNonEmpty(name string) (string, error) {
	val, set := cs.get(name)

	if set == false {
		return "", fmt.Errorf("environment variable not set: [%s%s]", envPrefix, name)
	}

	if val == "" {
		return "", fmt.Errorf("environment variable set but empty: [%s%s]", envPrefix, name)
	}

	return val, nil
}

func (cs configSource) stringWithFallback(name string, fallback string) string {
	if val, set := cs.get(name); set && val != "" {
		return val
	}
	return fallback
}

func (cs configSource) intWithFallback(name string, fallback int) (int, error) {
	val, set := cs.get(name)
	if set == false || val == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", name, val)
	}

	return n, nil
}

func (cs configSource) boolWithFallback(name string, fallback bool) (bool, error) {
	val, set := cs.get(name)
	if set == false || val == "" {
		return fallback, nil
	}

	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}

	return false, fmt.Errorf("invalid boolean for %s: %q", name, val)
}

// durationWithFallback accepts Go durations ("1500ms") or a plain number of seconds
func (cs configSource) durationWithFallback(name string, fallback time.Duration) (time.Duration, error) {
	val, set := cs.get(name)
	if set == false || val == "" {
		return fallback, nil
	}

	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", name, val)
	}

	return d, nil
}

func readConfigFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return fc.settings(), nil
}

// loadConfig builds the configuration from the environment, layered over the
// YAML file named by the CONFIG variable when present
func loadConfig(lookupEnv func(string) (string, bool)) (*ServiceConfig, error) {
	configFile, _ := lookupEnv(envPrefix + "CONFIG")

	file, err := readConfigFile(configFile)
	if err != nil {
		return nil, err
	}

	cs := configSource{lookupEnv: lookupEnv, file: file}

	var cfg ServiceConfig

	if cfg.ListenPort, err = cs.ensureSetAndNonEmpty("LISTEN_PORT"); err != nil {
		return nil, err
	}
	if cfg.MaxSuggestions, err = cs.intWithFallback("MAX_SUGGESTIONS", suggest.DefaultMaxSuggestions); err != nil {
		return nil, err
	}
	if cfg.MaxSuggestions <= 0 {
		return nil, fmt.Errorf("MAX_SUGGESTIONS must be positive, got %d", cfg.MaxSuggestions)
	}

	cfg.SeedFile = cs.stringWithFallback("SEED_FILE", "")

	cfg.Solr.Host = cs.stringWithFallback("SOLR_HOST", "")
	cfg.Solr.Core = cs.stringWithFallback("SOLR_CORE", "")
	cfg.Solr.Handler = cs.stringWithFallback("SOLR_HANDLER", "select")
	if cfg.Solr.ConnTimeout, err = cs.durationWithFallback("SOLR_CONN_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Solr.ReadTimeout, err = cs.durationWithFallback("SOLR_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.Preconnect, err = cs.boolWithFallback("PRECONNECT", false); err != nil {
		return nil, err
	}
	if cfg.PreconnectTimeout, err = cs.durationWithFallback("PRECONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PreconnectWindow, err = cs.durationWithFallback("PRECONNECT_WINDOW", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.ClickTTL, err = cs.durationWithFallback("CLICK_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ClickCapacity, err = cs.intWithFallback("CLICK_CAPACITY", 10000); err != nil {
		return nil, err
	}

	if cfg.Pprof, err = cs.boolWithFallback("PPROF", false); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = cs.boolWithFallback("VERBOSE", false); err != nil {
		return nil, err
	}
	cfg.Solr.Verbose = cfg.Verbose

	return &cfg, nil
}

// LoadConfiguration will load the service configuration from env/config file
// and return a pointer to it. Any failures are fatal.
func LoadConfiguration() *ServiceConfig {

	log.Info().Msg("Loading configuration...")

	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().Msgf("[CONFIG] ListenPort        = [%s]", cfg.ListenPort)
	log.Info().Msgf("[CONFIG] MaxSuggestions    = [%d]", cfg.MaxSuggestions)
	log.Info().Msgf("[CONFIG] SeedFile          = [%s]", cfg.SeedFile)
	log.Info().Msgf("[CONFIG] SolrHost          = [%s]", cfg.Solr.Host)
	log.Info().Msgf("[CONFIG] SolrCore          = [%s]", cfg.Solr.Core)
	log.Info().Msgf("[CONFIG] SolrHandler       = [%s]", cfg.Solr.Handler)
	log.Info().Msgf("[CONFIG] SolrConnTimeout   = [%s]", cfg.Solr.ConnTimeout)
	log.Info().Msgf("[CONFIG] SolrReadTimeout   = [%s]", cfg.Solr.ReadTimeout)
	log.Info().Msgf("[CONFIG] Preconnect        = [%t]", cfg.Preconnect)
	log.Info().Msgf("[CONFIG] PreconnectTimeout = [%s]", cfg.PreconnectTimeout)
	log.Info().Msgf("[CONFIG] PreconnectWindow  = [%s]", cfg.PreconnectWindow)
	log.Info().Msgf("[CONFIG] ClickTTL          = [%s]", cfg.ClickTTL)
	log.Info().Msgf("[CONFIG] ClickCapacity     = [%d]", cfg.ClickCapacity)
	log.Info().Msgf("[CONFIG] Pprof             = [%t]", cfg.Pprof)
	log.Info().Msgf("[CONFIG] Verbose           = [%t]", cfg.Verbose)

	return cfg
}
