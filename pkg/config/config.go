// Package config loads the kernel's environment configuration: the
// database connection, the internal callback token, task defaults, and
// the runtime catalog, as an umbrella Config object built once at boot.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/agentkernel/kernel/pkg/store"
)

// Defaults holds the task defaults read from TASK_DEFAULT_TIMEOUT_MS and
// TASK_LIST_LIMIT. They are not passed on to the scheduler or the store,
// which apply their own defaults (scheduler.DefaultTimeoutMs and a list
// limit of 500).
type Defaults struct {
	TaskTimeoutMs int64
	ListLimit     int
}

// Config is the umbrella configuration object returned by Load.
type Config struct {
	DB            store.Config
	InternalToken string
	Defaults      Defaults
	HTTPPort      string
	RuntimeCatalogPath string
	Runtimes      []RuntimeCatalogEntry
}

// Load reads every environment-driven setting, including the runtime
// catalog file named by RUNTIME_CATALOG_PATH if set.
func Load() (*Config, error) {
	dbCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	internalToken := os.Getenv("INTERNAL_TOKEN")
	if internalToken == "" {
		return nil, fmt.Errorf("INTERNAL_TOKEN is required")
	}

	timeoutMs, err := strconv.ParseInt(getEnvOrDefault("TASK_DEFAULT_TIMEOUT_MS", "15000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TASK_DEFAULT_TIMEOUT_MS: %w", err)
	}
	listLimit, err := strconv.Atoi(getEnvOrDefault("TASK_LIST_LIMIT", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid TASK_LIST_LIMIT: %w", err)
	}

	catalogPath := os.Getenv("RUNTIME_CATALOG_PATH")
	var runtimes []RuntimeCatalogEntry
	if catalogPath != "" {
		runtimes, err = LoadRuntimeCatalog(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("load runtime catalog: %w", err)
		}
	}

	return &Config{
		DB:            dbCfg,
		InternalToken: internalToken,
		Defaults:      Defaults{TaskTimeoutMs: timeoutMs, ListLimit: listLimit},
		HTTPPort:      getEnvOrDefault("HTTP_PORT", "8080"),
		RuntimeCatalogPath: catalogPath,
		Runtimes:      runtimes,
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
