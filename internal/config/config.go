// Package config reads settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"aid-delivery-sim/internal/services"
	"aid-delivery-sim/internal/simulation"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// LoadEnv loads .env (or the given files) into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("config %s: %w", key, err)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("config %s: %w", key, err)
	}
	return f, nil
}

func GetBool(key string, fallback bool) (bool, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("config %s: %w", key, err)
	}
	return b, nil
}

// Settings are the process-level options shared by the commands.
type Settings struct {
	Port         string
	DBDriver     string
	DBPath       string
	DatabaseURL  string
	ScenarioPath string
	ReportDir    string
	LogLevel     string
	// concurrent runs allowed per replication request
	Parallelism int
}

func LoadSettings() (Settings, error) {
	s := Settings{
		Port:         Get("PORT", "8080"),
		DBDriver:     strings.ToLower(Get("DB_DRIVER", "sqlite")),
		DBPath:       Get("DB_PATH", "data/aidsim.db"),
		DatabaseURL:  Get("DATABASE_URL", ""),
		ScenarioPath: Get("SCENARIO_PATH", ""),
		ReportDir:    Get("REPORT_DIR", ""),
		LogLevel:     Get("LOG_LEVEL", "info"),
	}

	var err error
	s.Parallelism, err = GetInt("PARALLELISM", 4)
	if err != nil {
		return s, err
	}

	switch s.DBDriver {
	case "sqlite":
	case "postgres":
		if s.DatabaseURL == "" {
			return s, fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return s, fmt.Errorf("config: DB_DRIVER %q: want sqlite or postgres", s.DBDriver)
	}
	return s, nil
}

// SimParams overlays SIM_* variables on the default run parameters.
func SimParams() (simulation.Params, error) {
	p := simulation.DefaultParams()
	var errs error

	intVar := func(key string, dst *int) {
		v, err := GetInt(key, *dst)
		errs = multierr.Append(errs, err)
		*dst = v
	}
	floatVar := func(key string, dst *float64) {
		v, err := GetFloat(key, *dst)
		errs = multierr.Append(errs, err)
		*dst = v
	}

	seed, err := strconv.ParseInt(Get("SIM_SEED", strconv.FormatInt(p.Seed, 10)), 10, 64)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("config SIM_SEED: %w", err))
	} else {
		p.Seed = seed
	}

	intVar("SIM_TICKS", &p.Ticks)
	intVar("SIM_DRIVERS", &p.Drivers)
	intVar("SIM_BAYS", &p.Bays)
	intVar("SIM_MANIFEST_SIZE", &p.ManifestSize)
	intVar("SIM_LOADS_PER_ROUND", &p.LoadsPerRound)
	intVar("SIM_MAX_ROUTE_ATTEMPTS", &p.MaxRouteAttempts)
	floatVar("SIM_RESOLUTION", &p.Resolution)
	floatVar("SIM_SPEED", &p.Speed)
	floatVar("SIM_LOADING_TIME", &p.LoadingTime)
	floatVar("SIM_DELIVERY_TIME", &p.DeliveryTime)
	floatVar("SIM_BREAKDOWN_RECOVERY_TIME", &p.BreakdownRecoveryTime)
	floatVar("SIM_PROB_FAILED_DELIVERY", &p.ProbFailedDelivery)
	floatVar("SIM_PROB_BREAKDOWN", &p.ProbBreakdown)
	floatVar("SIM_FOLLOWING_DISTANCE", &p.FollowingDistance)
	floatVar("SIM_MIN_SPEED", &p.MinSpeed)

	strategy, err := services.ParseBatchStrategy(Get("SIM_STRATEGY", string(p.Strategy)))
	errs = multierr.Append(errs, err)
	if err == nil {
		p.Strategy = strategy
	}

	if errs != nil {
		return p, errs
	}
	return p, p.Validate()
}
