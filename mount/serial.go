package mount

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
	"golang.org/x/sync/errgroup"

	"github.com/openscope/mountd/coords"
)

// SerialPort drives a mount motor controller over a serial line.
//
// The controller speaks a line protocol: the host sends "slew <x> <y>" and
// "stop"; the controller reports "p <x> <y>" position lines while moving,
// "done" when a commanded move completes, "err <message>" on a drive
// fault, and "!..." free-form log lines.
type SerialPort struct {
	// cancel stops the reconnect loop; done closes when it has exited.
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	s      *serial.Port
	pos    coords.Axes
	result chan error
}

// OpenSerialPort starts the reconnect loop for the named port. The port
// reconnects with a 1s backoff until ctx is cancelled or Close is called.
func OpenSerialPort(ctx context.Context, port string, baud int) *SerialPort {
	ctx, cancel := context.WithCancel(ctx)
	r := &SerialPort{
		cancel: cancel,
		done:   make(chan struct{}),
		pos:    coords.Axes{X: math.NaN(), Y: math.NaN()},
	}
	go r.reconnectLoop(ctx, port, baud)
	return r
}

func (r *SerialPort) reconnectLoop(ctx context.Context, port string, baud int) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}
		c := &serial.Config{Name: port, Baud: baud}
		s, err := serial.OpenPort(c)
		if err != nil {
			log.Printf("opening %q: %v", port, err)
			continue
		}
		log.Printf("opened %q", port)
		r.mu.Lock()
		r.s = s
		r.mu.Unlock()
		if err := r.watch(ctx, s); err != nil && ctx.Err() == nil {
			log.Printf("watching %q: %v", port, err)
		}
		r.mu.Lock()
		r.s = nil
		r.deliver(errors.New("serial port disconnected"))
		r.mu.Unlock()
	}
}

func (r *SerialPort) watch(ctx context.Context, s *serial.Port) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Wait for context to be canceled, then close the port.
		<-ctx.Done()
		return s.Close()
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(s)
		for scanner.Scan() {
			if err := r.parseInput(scanner.Text()); err != nil {
				log.Printf("parsing %q: %v", scanner.Text(), err)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading port: %w", err)
		}
		return errors.New("port closed")
	})
	return g.Wait()
}

func (r *SerialPort) parseInput(input string) error {
	if len(input) == 0 {
		return nil
	}
	if input[0] == '!' {
		log.Print(input)
		return nil
	}
	fields := strings.Fields(input)
	r.mu.Lock()
	defer r.mu.Unlock()
	switch fields[0] {
	case "p":
		if len(fields) != 3 {
			return errors.New("truncated position report")
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return err
		}
		y, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return err
		}
		r.pos = coords.Axes{X: x, Y: y}
	case "done":
		r.deliver(nil)
	case "err":
		r.deliver(errors.New(strings.TrimSpace(input[3:])))
	default:
		return fmt.Errorf("unknown controller output %q", input)
	}
	return nil
}

// deliver hands the outcome of the in-flight move to its waiter.
// Callers must hold mu.
func (r *SerialPort) deliver(err error) {
	if r.result == nil {
		return
	}
	r.result <- err
	r.result = nil
}

func (r *SerialPort) send(cmd string) error {
	if r.s == nil {
		return errors.New("serial port not connected")
	}
	if _, err := r.s.Write([]byte(cmd + "\n")); err != nil {
		return err
	}
	return nil
}

func (r *SerialPort) Position() coords.Axes {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

func (r *SerialPort) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s != nil
}

// Close stops the reconnect loop and releases the line, so the device
// path is immediately reusable.
func (r *SerialPort) Close() error {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil {
		return nil
	}
	return r.s.Close()
}

// ExecuteMove commands a slew and waits for the controller to report
// completion. Cancellation sends "stop" and returns the position reached.
func (r *SerialPort) ExecuteMove(ctx context.Context, target coords.Axes) (coords.Axes, error) {
	r.mu.Lock()
	if r.s == nil {
		r.mu.Unlock()
		return r.Position(), &MoveError{Reason: ReasonHardware, Err: errors.New("serial port not connected")}
	}
	ch := make(chan error, 1)
	r.result = ch
	if err := r.send(fmt.Sprintf("slew %.4f %.4f", target.X, target.Y)); err != nil {
		r.result = nil
		r.mu.Unlock()
		return r.Position(), &MoveError{Reason: ReasonHardware, Err: err}
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		r.mu.Lock()
		if err := r.send("stop"); err != nil {
			log.Printf("stopping after cancel: %v", err)
		}
		r.result = nil
		r.mu.Unlock()
		return r.Position(), ctx.Err()
	case err := <-ch:
		if err != nil {
			return r.Position(), &MoveError{Reason: ReasonHardware, Err: err}
		}
		return r.Position(), nil
	}
}
