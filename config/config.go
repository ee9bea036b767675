package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"openb-topology/bundle"
	"openb-topology/discovery"
	"openb-topology/k8s"
)

const DefaultFile = "openb-topology.yaml"

type Config struct {
	RackModulus    int                `yaml:"rackModulus"`
	MaxSkew        int                `yaml:"maxSkew"`
	Patterns       discovery.Patterns `yaml:"patterns"`
	DataRoot       string             `yaml:"dataRoot"`
	DatasetPattern string             `yaml:"datasetPattern"`
	BundleSuffix   string             `yaml:"bundleSuffix"`
	Strict         bool               `yaml:"strict"`
}

func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads file and fills unset fields with defaults. When optional
// is true a missing file yields the defaults instead of an error.
func LoadConfig(file string, optional bool) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", file, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", file, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", file, err)
	}

	logrus.Debugf("Loaded config: %+v", config)
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.RackModulus == 0 {
		c.RackModulus = 10
	}
	if c.MaxSkew == 0 {
		c.MaxSkew = 1
	}
	if c.Patterns.Node == "" {
		c.Patterns.Node = discovery.DefaultNodePattern
	}
	if c.Patterns.Pod == "" {
		c.Patterns.Pod = discovery.DefaultPodPattern
	}
	if c.DataRoot == "" {
		c.DataRoot = "data"
	}
	if c.DatasetPattern == "" {
		c.DatasetPattern = discovery.DefaultDatasetPattern
	}
	if c.BundleSuffix == "" {
		c.BundleSuffix = bundle.DefaultSuffix
	}
}

func (c Config) Validate() error {
	if c.RackModulus < 1 {
		return fmt.Errorf("rackModulus must be positive, got %d", c.RackModulus)
	}
	if c.MaxSkew < 1 {
		return fmt.Errorf("maxSkew must be positive, got %d", c.MaxSkew)
	}
	if c.MaxSkew > k8s.MaxSkewLimit {
		return fmt.Errorf("maxSkew must be at most %d, got %d", k8s.MaxSkewLimit, c.MaxSkew)
	}
	return nil
}
