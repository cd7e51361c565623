package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openscope/mountd/coords"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mountd.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
hand_controller_listen: ":4533"
interlock:
  port: /dev/ttyUSB1
  baud: 19200
devices:
  - number: 0
    name: main scope
    geometry: german
    mount: serial
    serial_port: /dev/ttyUSB0
    serial_baud: 115200
    latitude: 51.2
    longitude: -0.3
    hour_angle_limit: 95
    park: [180, 0]
    home: [90, 90]
  - number: 1
    name: sim
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.HandControllerListen != ":4533" {
		t.Errorf("listen addresses: %+v", cfg)
	}
	if cfg.Interlock.Port != "/dev/ttyUSB1" || cfg.Interlock.Baud != 19200 {
		t.Errorf("interlock: %+v", cfg.Interlock)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("got %d devices", len(cfg.Devices))
	}

	mcfg, err := cfg.Devices[0].MountConfig()
	if err != nil {
		t.Fatal(err)
	}
	if mcfg.Geometry != coords.GermanEquatorial || mcfg.Mount != coords.SerialHardware {
		t.Errorf("device 0 kinds: %+v", mcfg)
	}
	if mcfg.SerialPort != "/dev/ttyUSB0" || mcfg.SerialBaud != 115200 {
		t.Errorf("device 0 serial: %+v", mcfg)
	}
	if diff := cmp.Diff(&coords.Limits{HourAngle: 95}, mcfg.Limits); diff != "" {
		t.Errorf("device 0 limits (-want +got):\n%s", diff)
	}
	if mcfg.ParkAxes != (coords.Axes{X: 180}) || mcfg.HomeAxes != (coords.Axes{X: 90, Y: 90}) {
		t.Errorf("device 0 park/home: %+v", mcfg)
	}

	// Omitted fields default to a simulated alt-az mount with no limits.
	mcfg, err = cfg.Devices[1].MountConfig()
	if err != nil {
		t.Fatal(err)
	}
	if mcfg.Geometry != coords.AltAzimuth || mcfg.Mount != coords.Simulated {
		t.Errorf("device 1 kinds: %+v", mcfg)
	}
	if mcfg.Limits != nil {
		t.Errorf("device 1 limits: %+v", mcfg.Limits)
	}
}

func TestLoadDefaultListen(t *testing.T) {
	cfg, err := Load(writeConfig(t, "devices: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8502" {
		t.Errorf("default listen: %q", cfg.Listen)
	}
}

func TestLoadRejectsBadDevice(t *testing.T) {
	for _, body := range []string{
		"devices:\n  - number: 0\n    name: x\n    geometry: dobsonian\n",
		"devices:\n  - number: 0\n    name: x\n    mount: steam\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("config %q loaded without error", body)
		}
	}
}

func TestPolarRestricted(t *testing.T) {
	d := DeviceConfig{Geometry: "polar", PolarRestricted: true}
	mcfg, err := d.MountConfig()
	if err != nil {
		t.Fatal(err)
	}
	if mcfg.PolarMode != coords.PolarRestricted {
		t.Errorf("polar mode: %v", mcfg.PolarMode)
	}
}
