package robot

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gwillem/meped/pkg/quad"
)

const DefaultConfigFile = "meped.toml"

// Config holds the robot configuration
type Config struct {
	Port         string      `toml:"port"`
	BaudRate     int         `toml:"baud_rate,omitempty"`
	Speed        float64     `toml:"speed,omitempty"`
	BodyHeight   float64     `toml:"body_height,omitempty"`
	LiftMinAngle float64     `toml:"lift_min_angle,omitempty"`
	LiftMaxAngle float64     `toml:"lift_max_angle,omitempty"`
	Servos       Calibration `toml:"servos"`
}

// DefaultConfig returns the configuration of a stock build without a port.
func DefaultConfig() *Config {
	return &Config{
		BaudRate:     DefaultBaudRate,
		Speed:        quad.DefaultSpeed,
		LiftMinAngle: quad.DefaultLiftMinAngle,
		LiftMaxAngle: quad.DefaultLiftMaxAngle,
		Servos:       DefaultCalibration(),
	}
}

// HasPort returns true if a serial port is configured
func (c *Config) HasPort() bool {
	return c.Port != ""
}

// BodyConfig returns the settings of the quadruped body.
func (c *Config) BodyConfig() quad.BodyConfig {
	return quad.BodyConfig{
		Speed:        c.Speed,
		BodyHeight:   c.BodyHeight,
		LiftMinAngle: c.LiftMinAngle,
		LiftMaxAngle: c.LiftMaxAngle,
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Missing servo
// entries and settings take their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.mergeServos(string(data)); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// mergeServos decodes every servo table over its default calibration, so an
// entry only needs the fields that differ from a stock build.
func (c *Config) mergeServos(data string) error {
	var file struct {
		Servos map[string]toml.Primitive `toml:"servos"`
	}
	md, err := toml.Decode(data, &file)
	if err != nil {
		return err
	}

	defaults := DefaultCalibration()
	servos := make(Calibration, len(defaults))
	for name, sc := range defaults {
		servos[name] = sc
	}
	for name, prim := range file.Servos {
		sc := defaults[name]
		if err := md.PrimitiveDecode(prim, &sc); err != nil {
			return fmt.Errorf("servo %s: %w", name, err)
		}
		servos[name] = sc
	}
	c.Servos = servos
	return nil
}

// Validate checks settings the core cannot clamp by itself.
func (c *Config) Validate() error {
	if c.LiftMinAngle >= c.LiftMaxAngle {
		return errors.New("lift_min_angle must be below lift_max_angle")
	}
	seen := make(map[int]string)
	for name, sc := range c.Servos {
		if _, ok := quad.ActuatorByName(name); !ok {
			return fmt.Errorf("unknown servo %q", name)
		}
		if sc.ID <= 0 {
			return fmt.Errorf("servo %s: id must be positive", name)
		}
		if sc.RangeMin == sc.RangeMax {
			return fmt.Errorf("servo %s: empty range %d..%d", name, sc.RangeMin, sc.RangeMax)
		}
		if other, ok := seen[sc.ID]; ok {
			return fmt.Errorf("servos %s and %s share id %d", other, name, sc.ID)
		}
		seen[sc.ID] = name
	}
	return nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
