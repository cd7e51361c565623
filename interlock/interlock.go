// Package interlock monitors the mount drive power controller over
// Modbus RTU. While drive power is down, moves must not be commanded;
// the server wires the status callback to each instance's
// SetMovingDisabled.
package interlock

import (
	"context"
	"sync"

	"github.com/openscope/mountd/internal/modbus"
)

// Status is one poll of the power controller.
//
// Discrete input 0 is the main drive power relay; inputs 1 and 2 report
// whether each axis drive is energized. Coils 0 and 1 command the axis
// drives.
type Status struct {
	Power        bool
	XDriveActive bool
	YDriveActive bool
}

type StatusCallback func(status Status)

type Monitor struct {
	statusCallback StatusCallback
	mu             sync.Mutex
	client         *modbus.Client
	inputs         []bool
	coils          []bool
}

// Connect starts polling the power controller on the given serial port.
func Connect(ctx context.Context, port string, baud int, statusCallback StatusCallback) (*Monitor, error) {
	m := &Monitor{
		client: &modbus.Client{
			Port:     port,
			BaudRate: baud,
			SlaveId:  1,
		},
		statusCallback: statusCallback,
	}
	m.client.Poll = m.pollOnce
	return m, m.client.Connect(ctx)
}

func (m *Monitor) pollOnce() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inputs, err := m.client.ReadDiscreteInputs(0, 3)
	if err != nil {
		return err
	}
	coils, err := m.client.ReadCoils(0, 2)
	if err != nil {
		return err
	}
	m.inputs = modbus.BytesToBits(inputs)
	m.coils = modbus.BytesToBits(coils)
	m.notifyStatus()
	return nil
}

func (m *Monitor) notifyStatus() {
	status := m.parseInputs()
	m.statusCallback(status)
}

func (m *Monitor) parseInputs() Status {
	return Status{
		Power:        m.inputs[0],
		XDriveActive: m.inputs[1],
		YDriveActive: m.inputs[2],
	}
}

// SetDrivesEnabled commands both axis drives on or off.
func (m *Monitor) SetDrivesEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.WriteCoil(0, enabled); err != nil {
		return err
	}
	return m.client.WriteCoil(1, enabled)
}
