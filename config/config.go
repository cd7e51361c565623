// Package config loads the server and device configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openscope/mountd/coords"
	"github.com/openscope/mountd/mount"
)

// Config is the root structure loaded from mountd.yaml.
type Config struct {
	// Listen is the HTTP listen address (e.g. ":8502").
	Listen string `yaml:"listen"`
	// HandControllerListen, when set, accepts line commands over TCP.
	HandControllerListen string          `yaml:"hand_controller_listen"`
	Interlock            InterlockConfig `yaml:"interlock"`
	Devices              []DeviceConfig  `yaml:"devices"`
}

// InterlockConfig selects the optional drive-power monitor.
type InterlockConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// DeviceConfig defines one mount to register at startup.
type DeviceConfig struct {
	Number   int    `yaml:"number"`
	Name     string `yaml:"name"`
	Geometry string `yaml:"geometry"` // altaz, polar, german
	Mount    string `yaml:"mount"`    // simulated, serial

	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`

	Latitude           float64 `yaml:"latitude"`
	Longitude          float64 `yaml:"longitude"`
	SouthernHemisphere bool    `yaml:"southern_hemisphere"`
	PolarRestricted    bool    `yaml:"polar_restricted"`
	ReverseX           bool    `yaml:"reverse_x"`
	ReverseY           bool    `yaml:"reverse_y"`

	// Axis limits; zero values mean unlimited.
	HourAngleLimit float64    `yaml:"hour_angle_limit"`
	MinY           float64    `yaml:"min_y"`
	MaxY           float64    `yaml:"max_y"`
	Park           [2]float64 `yaml:"park"`
	Home           [2]float64 `yaml:"home"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8502"
	}
	for i := range cfg.Devices {
		if _, err := cfg.Devices[i].MountConfig(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// MountConfig translates a device entry into the engine's configuration
// snapshot.
func (d DeviceConfig) MountConfig() (mount.Config, error) {
	cfg := mount.Config{
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		SouthernHemisphere: d.SouthernHemisphere,
		ReverseX:           d.ReverseX,
		ReverseY:           d.ReverseY,
		SerialPort:         d.SerialPort,
		SerialBaud:         d.SerialBaud,
		ParkAxes:           coords.Axes{X: d.Park[0], Y: d.Park[1]},
		HomeAxes:           coords.Axes{X: d.Home[0], Y: d.Home[1]},
	}
	switch d.Geometry {
	case "altaz", "":
		cfg.Geometry = coords.AltAzimuth
	case "polar":
		cfg.Geometry = coords.PolarFork
	case "german":
		cfg.Geometry = coords.GermanEquatorial
	default:
		return cfg, fmt.Errorf("device %d: unknown geometry %q", d.Number, d.Geometry)
	}
	if d.PolarRestricted {
		cfg.PolarMode = coords.PolarRestricted
	}
	switch d.Mount {
	case "simulated", "":
		cfg.Mount = coords.Simulated
	case "serial":
		cfg.Mount = coords.SerialHardware
	default:
		return cfg, fmt.Errorf("device %d: unknown mount kind %q", d.Number, d.Mount)
	}
	if d.HourAngleLimit > 0 || d.MaxY > d.MinY {
		cfg.Limits = &coords.Limits{
			HourAngle: d.HourAngleLimit,
			MinY:      d.MinY,
			MaxY:      d.MaxY,
		}
	}
	return cfg, nil
}
