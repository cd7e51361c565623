package interlock

import (
	"testing"

	gomodbus "github.com/goburrow/modbus"
	"github.com/google/go-cmp/cmp"

	"github.com/openscope/mountd/internal/modbus"
)

// fakeBus overrides the register operations the monitor uses; anything
// else panics through the embedded nil interface.
type fakeBus struct {
	gomodbus.Client
	inputs byte
	coils  byte

	coilWrites map[uint16]uint16
}

func (f *fakeBus) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	return []byte{f.inputs}, nil
}

func (f *fakeBus) ReadCoils(address, quantity uint16) ([]byte, error) {
	return []byte{f.coils}, nil
}

func (f *fakeBus) WriteSingleCoil(address, value uint16) ([]byte, error) {
	if f.coilWrites == nil {
		f.coilWrites = make(map[uint16]uint16)
	}
	f.coilWrites[address] = value
	return nil, nil
}

func testMonitor(bus *fakeBus, cb StatusCallback) *Monitor {
	m := &Monitor{
		client:         &modbus.Client{Client: bus},
		statusCallback: cb,
	}
	m.client.Poll = m.pollOnce
	return m
}

func TestPollOnce(t *testing.T) {
	for _, test := range []struct {
		name   string
		inputs byte
		want   Status
	}{
		{
			name:   "power up, y drive active",
			inputs: 0b101,
			want:   Status{Power: true, YDriveActive: true},
		},
		{
			name:   "power down",
			inputs: 0b110,
			want:   Status{Power: false, XDriveActive: true, YDriveActive: true},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var got Status
			m := testMonitor(&fakeBus{inputs: test.inputs}, func(s Status) { got = s })
			if err := m.pollOnce(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("status (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetDrivesEnabled(t *testing.T) {
	bus := &fakeBus{}
	m := testMonitor(bus, func(Status) {})
	if err := m.SetDrivesEnabled(true); err != nil {
		t.Fatal(err)
	}
	want := map[uint16]uint16{0: 0xFF00, 1: 0xFF00}
	if diff := cmp.Diff(want, bus.coilWrites); diff != "" {
		t.Errorf("coil writes (-want +got):\n%s", diff)
	}
	if err := m.SetDrivesEnabled(false); err != nil {
		t.Fatal(err)
	}
	want = map[uint16]uint16{0: 0, 1: 0}
	if diff := cmp.Diff(want, bus.coilWrites); diff != "" {
		t.Errorf("coil writes (-want +got):\n%s", diff)
	}
}
