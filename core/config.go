package core

import (
	"fmt"
	"strings"
)

// SourceConfig points the ingestion loop at the upstream signals API.
type SourceConfig struct {
	BaseURL  string `koanf:"base_url" mapstructure:"base_url"`
	PagePath string `koanf:"page_path" mapstructure:"page_path"`
}

type Config struct {
	ServiceName    string       `koanf:"service_name" mapstructure:"service_name"`
	Source         SourceConfig `koanf:"source" mapstructure:"source"`
	ActiveServices []string     `koanf:"active_services" mapstructure:"active_services"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "signal-relay",
		Source: SourceConfig{
			BaseURL:  "https://acc.api.data.amsterdam.nl",
			PagePath: "/signal/",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return fmt.Errorf("core: source.base_url is required")
	}
	return nil
}

// FirstPageURL joins the configured base URL and page path.
func (c Config) FirstPageURL() string {
	base := strings.TrimSuffix(strings.TrimSpace(c.Source.BaseURL), "/")
	path := strings.TrimSpace(c.Source.PagePath)
	if path == "" {
		path = "/signal/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
