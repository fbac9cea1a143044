package route

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPublishPrefix = "crewpath"
	DefaultClientID      = "crewpath"
)

// Config represents the full configuration file
type Config struct {
	Engine  Params        `yaml:"engine" json:"engine"`
	Habitat HabitatConfig `yaml:"habitat" json:"habitat"`
	MQTT    MQTTConfig    `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// HabitatConfig is the initial habitat geometry. Obstacles arrive at runtime
// from a layout file, a layout URL, or the MQTT layout topic.
type HabitatConfig struct {
	Envelope   `yaml:",inline"`
	LayoutFile string `yaml:"layoutFile,omitempty" json:"layoutFile,omitempty"`
	LayoutURL  string `yaml:"layoutUrl,omitempty" json:"layoutUrl,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	QueryTopic    string `yaml:"queryTopic,omitempty" json:"queryTopic,omitempty"`   // default {publishPrefix}/query
	LayoutTopic   string `yaml:"layoutTopic,omitempty" json:"layoutTopic,omitempty"` // default {publishPrefix}/layout
}

// DefaultConfig returns a config with engine defaults and no habitat
func DefaultConfig() *Config {
	c := &Config{Engine: DefaultParams()}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	c.Engine = c.Engine.WithDefaults()
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = DefaultPublishPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.QueryTopic == "" {
		c.MQTT.QueryTopic = c.MQTT.PublishPrefix + "/query"
	}
	if c.MQTT.LayoutTopic == "" {
		c.MQTT.LayoutTopic = c.MQTT.PublishPrefix + "/layout"
	}
}

// HasEnvelope reports whether the config defines habitat geometry
func (c *Config) HasEnvelope() bool {
	return c.Habitat.Shape != ""
}

// LoadConfig loads the configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// keys absent from the file keep their defaults
	config := Config{Engine: DefaultParams()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.applyDefaults()

	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if config.HasEnvelope() {
		if err := config.Habitat.Envelope.Validate(); err != nil {
			return nil, fmt.Errorf("habitat: %w", err)
		}
	}
	if config.Habitat.LayoutFile != "" && config.Habitat.LayoutURL != "" {
		return nil, fmt.Errorf("habitat.layoutFile and habitat.layoutUrl are mutually exclusive")
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
