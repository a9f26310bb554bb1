// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"qroute/internal/earth"
	"qroute/internal/geo"
	"qroute/internal/oracle"
	"qroute/internal/qubo"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "QROUTE_CONFIG"

var LogLevels = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
	"fatal": logrus.FatalLevel,
	"panic": logrus.PanicLevel,
}

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Log      LogConfig     `yaml:"log"`
	Data     DataConfig    `yaml:"data"`
	Grid     GridConfig    `yaml:"grid"`
	Graph    geo.Options   `yaml:"graph"`
	Route    RouteConfig   `yaml:"route"`
	QUBO     qubo.Options  `yaml:"qubo"`
	Solver   SolverConfig  `yaml:"solver"`
	Store    StoreConfig   `yaml:"store"`
	Webhooks WebhookConfig `yaml:"webhooks"`
	Auth     AuthConfig    `yaml:"auth"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	H2C               bool          `yaml:"h2c"`
	RateRPS           float64       `yaml:"rateRps"`
	RateBurst         int           `yaml:"rateBurst"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return ":" + strconv.Itoa(s.Port) }

type LogConfig struct {
	Level string `yaml:"level"`
}

// Apply sets the global logrus level.
func (l LogConfig) Apply() error {
	level, ok := LogLevels[strings.ToLower(l.Level)]
	if !ok {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	logrus.SetLevel(level)
	return nil
}

type DataConfig struct {
	PopulationCSV string `yaml:"populationCsv"`
	BoundaryFile  string `yaml:"boundaryFile"`
}

type GridConfig struct {
	Bounds    earth.Rect `yaml:"bounds"`
	Precision int        `yaml:"precision"`
}

type RouteConfig struct {
	DefaultHops int `yaml:"defaultHops"`
	MaxHops     int `yaml:"maxHops"`
	// ConnectEndpoints links start and end directly after insertion.
	ConnectEndpoints bool `yaml:"connectEndpoints"`
	// Cull drops vertices outside the start/end rectangle before solving.
	Cull bool `yaml:"cull"`
	// SolveTimeout bounds one request's minimization.
	SolveTimeout time.Duration `yaml:"solveTimeout"`
}

type SolverConfig struct {
	Algorithm     string        `yaml:"algorithm"`
	MaxExactVars  int           `yaml:"maxExactVars"`
	TimeBudget    time.Duration `yaml:"timeBudget"`
	MaxIterations int           `yaml:"maxIterations"`
	InitialTemp   float64       `yaml:"initialTemp"`
	Cooling       float64       `yaml:"cooling"`
}

// Options converts the solver settings to oracle defaults.
func (s SolverConfig) Options() oracle.Options {
	return oracle.Options{
		TimeBudget:    s.TimeBudget,
		MaxIterations: s.MaxIterations,
		InitialTemp:   s.InitialTemp,
		Cooling:       s.Cooling,
	}
}

type StoreConfig struct {
	DatabaseURL   string `yaml:"databaseUrl"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	RedisURL      string `yaml:"redisUrl"`
	Migrate       bool   `yaml:"migrate"`
}

// WebhookConfig lists the endpoints that receive path events.
type WebhookConfig struct {
	URLs        []string      `yaml:"urls"`
	Secret      string        `yaml:"secret"`
	MaxAttempts int           `yaml:"maxAttempts"`
	Timeout     time.Duration `yaml:"timeout"`
	Workers     int           `yaml:"workers"`
}

// AuthConfig guards the admin endpoints. Mode is none, hmac or jwks.
type AuthConfig struct {
	Mode       string `yaml:"mode"`
	HMACSecret string `yaml:"hmacSecret"`
	JWKSURL    string `yaml:"jwksUrl"`
	RoleClaim  string `yaml:"roleClaim"`
}

// Default returns the built-in settings: a 20x20 grid over New York City and
// a four-hop route budget.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			H2C:               true,
			RateRPS:           5,
			RateBurst:         10,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Grid: GridConfig{
			Bounds: earth.Rect{
				Min: earth.Point{Lng: -74.28, Lat: 40.48},
				Max: earth.Point{Lng: -73.65, Lat: 40.93},
			},
			Precision: 20,
		},
		Graph: geo.DefaultOptions(),
		Route: RouteConfig{
			DefaultHops:      4,
			MaxHops:          8,
			ConnectEndpoints: true,
			Cull:             true,
			SolveTimeout:     10 * time.Second,
		},
		QUBO: qubo.Options{PenaltyFloor: qubo.DefaultPenaltyFloor},
		Solver: SolverConfig{
			Algorithm:     oracle.AlgoAuto,
			MaxExactVars:  oracle.DefaultMaxExactVars,
			TimeBudget:    oracle.DefaultTimeBudget,
			MaxIterations: oracle.DefaultMaxIterations,
			Cooling:       oracle.DefaultCooling,
		},
		Store:    StoreConfig{MongoDatabase: "qroute", Migrate: true},
		Webhooks: WebhookConfig{MaxAttempts: 10, Timeout: 5 * time.Second, Workers: 2},
		Auth:     AuthConfig{Mode: "none", RoleClaim: "role"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.Server.RateRPS = f
	}
	if v := getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.Server.RateBurst = n
	}
	if v := getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS: %w", err)
		}
		c.Webhooks.MaxAttempts = n
	}
	if v := getenv("WEBHOOK_URLS"); v != "" {
		c.Webhooks.URLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.Webhooks.URLs = append(c.Webhooks.URLs, u)
			}
		}
	}
	if v := getenv("DB_MIGRATE"); v != "" {
		c.Store.Migrate = v != "false"
	}
	for env, dst := range map[string]*string{
		"LOG_LEVEL":        &c.Log.Level,
		"DATABASE_URL":     &c.Store.DatabaseURL,
		"MONGO_URI":        &c.Store.MongoURI,
		"REDIS_URL":        &c.Store.RedisURL,
		"POPULATION_CSV":   &c.Data.PopulationCSV,
		"BOUNDARY_FILE":    &c.Data.BoundaryFile,
		"SOLVER_ALGORITHM": &c.Solver.Algorithm,
		"WEBHOOK_SECRET":   &c.Webhooks.Secret,
		"AUTH_MODE":        &c.Auth.Mode,
		"AUTH_HMAC_SECRET": &c.Auth.HMACSecret,
		"AUTH_JWKS_URL":    &c.Auth.JWKSURL,
	} {
		if v := strings.TrimSpace(getenv(env)); v != "" {
			*dst = v
		}
	}
	return nil
}

func (c Config) Validate() error {
	if _, ok := LogLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Server.Port)
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("rate limits must be >= 0")
	}
	if c.Grid.Precision < 2 {
		return fmt.Errorf("grid precision must be >= 2")
	}
	if c.Grid.Bounds.Min.Lng >= c.Grid.Bounds.Max.Lng || c.Grid.Bounds.Min.Lat >= c.Grid.Bounds.Max.Lat {
		return fmt.Errorf("grid bounds are empty")
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if c.Route.DefaultHops < 1 || c.Route.MaxHops < c.Route.DefaultHops {
		return fmt.Errorf("need 1 <= defaultHops <= maxHops, got %d and %d", c.Route.DefaultHops, c.Route.MaxHops)
	}
	if c.Route.SolveTimeout < 0 || c.Solver.TimeBudget < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if c.Solver.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be >= 0")
	}
	if c.Solver.Cooling != 0 && (c.Solver.Cooling <= 0 || c.Solver.Cooling >= 1) {
		return fmt.Errorf("cooling must be in (0,1)")
	}
	if _, err := oracle.New(c.Solver.Algorithm, c.Solver.MaxExactVars); err != nil {
		return err
	}
	if len(c.Webhooks.URLs) > 0 && c.Webhooks.MaxAttempts < 1 {
		return fmt.Errorf("webhook maxAttempts must be >= 1")
	}
	switch strings.ToLower(c.Auth.Mode) {
	case "", "none":
	case "hmac":
		if c.Auth.HMACSecret == "" {
			return fmt.Errorf("auth mode hmac needs a secret")
		}
	case "jwks":
		if c.Auth.JWKSURL == "" {
			return fmt.Errorf("auth mode jwks needs a JWKS URL")
		}
	default:
		return fmt.Errorf("invalid auth mode: %s", c.Auth.Mode)
	}
	return nil
}
