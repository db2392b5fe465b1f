package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RuntimeCatalogEntry is one configured Runtime as declared in the YAML
// runtime catalog: the list of enabled runtimes with their config.
type RuntimeCatalogEntry struct {
	ID              string `yaml:"id"`
	Kind            string `yaml:"kind"` // "inline" | "remote"
	SandboxBaseURL  string `yaml:"sandboxBaseUrl"`
	AuthToken       string `yaml:"authToken"`
	RequestTimeout  string `yaml:"requestTimeout"`
	CallbackBaseURL string `yaml:"callbackBaseUrl"`
}

// runtimeCatalogFile is the top-level shape of the YAML file.
type runtimeCatalogFile struct {
	Runtimes []RuntimeCatalogEntry `yaml:"runtimes"`
}

// LoadRuntimeCatalog reads and parses the runtime catalog YAML at path.
func LoadRuntimeCatalog(path string) ([]RuntimeCatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runtime catalog %s: %w", path, err)
	}

	var file runtimeCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse runtime catalog %s: %w", path, err)
	}

	for _, entry := range file.Runtimes {
		if entry.RequestTimeout != "" {
			if _, err := time.ParseDuration(entry.RequestTimeout); err != nil {
				return nil, fmt.Errorf("runtime %q: invalid requestTimeout %q: %w", entry.ID, entry.RequestTimeout, err)
			}
		}
	}
	return file.Runtimes, nil
}
