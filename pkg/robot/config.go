package robot

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const DefaultConfigFile = "autonrec.toml"

// Config holds the robot configuration
type Config struct {
	Recorder  RecorderConfig  `toml:"recorder"`
	Store     StoreConfig     `toml:"store"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Leader    ArmConfig       `toml:"leader"`
	Follower  ArmConfig       `toml:"follower"`
}

// RecorderConfig holds the timing and slot constants of the recorder.
type RecorderConfig struct {
	AutonTime  int `toml:"auton_time"`  // seconds per section
	SkillsTime int `toml:"skills_time"` // seconds per skills run
	PollHz     int `toml:"poll_hz"`
	MaxSlots   int `toml:"max_slots"`
	PotHigh    int `toml:"pot_high"`
}

// StoreConfig selects where routines are persisted.
type StoreConfig struct {
	Backend string `toml:"backend"` // dir, sqlite or memory
	Path    string `toml:"path"`
}

// TelemetryConfig configures the MQTT event publisher. An empty broker disables it.
type TelemetryConfig struct {
	Broker   string `toml:"broker,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	ClientID string `toml:"client_id,omitempty"`
}

// ArmConfig holds configuration for a single arm
type ArmConfig struct {
	Port        string      `toml:"port"`
	Calibration Calibration `toml:"calibration,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// DefaultConfig returns the configuration of the competition robot.
func DefaultConfig() Config {
	return Config{
		Recorder: RecorderConfig{
			AutonTime:  15,
			SkillsTime: 60,
			PollHz:     50,
			MaxSlots:   10,
			PotHigh:    4095,
		},
		Store: StoreConfig{
			Backend: "dir",
			Path:    "routines",
		},
		Telemetry: TelemetryConfig{
			Topic:    "autonrec",
			ClientID: "autonrec",
		},
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	r := &c.Recorder
	if r.AutonTime == 0 {
		r.AutonTime = def.Recorder.AutonTime
	}
	if r.SkillsTime == 0 {
		r.SkillsTime = def.Recorder.SkillsTime
	}
	if r.PollHz == 0 {
		r.PollHz = def.Recorder.PollHz
	}
	if r.MaxSlots == 0 {
		r.MaxSlots = def.Recorder.MaxSlots
	}
	if r.PotHigh == 0 {
		r.PotHigh = def.Recorder.PotHigh
	}
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = def.Telemetry.Topic
	}
	if c.Telemetry.ClientID == "" {
		c.Telemetry.ClientID = def.Telemetry.ClientID
	}
	return c
}

// Validate reports configuration values the recorder cannot run with.
func (c Config) Validate() error {
	r := c.Recorder
	if r.AutonTime <= 0 || r.PollHz <= 0 || r.PotHigh <= 0 {
		return errors.New("auton_time, poll_hz and pot_high must be positive")
	}
	if r.MaxSlots < 1 {
		return errors.New("max_slots must be at least 1")
	}
	if r.SkillsTime < r.AutonTime || r.SkillsTime%r.AutonTime != 0 {
		return fmt.Errorf("skills_time %d is not a multiple of auton_time %d", r.SkillsTime, r.AutonTime)
	}
	switch c.Store.Backend {
	case "dir", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if err := c.Leader.Calibration.Validate(); err != nil {
		return fmt.Errorf("leader: %w", err)
	}
	if err := c.Follower.Calibration.Validate(); err != nil {
		return fmt.Errorf("follower: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
