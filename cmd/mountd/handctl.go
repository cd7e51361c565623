package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/openscope/mountd/coords"
	"github.com/openscope/mountd/mount"
)

// ListenHandController accepts line commands over TCP, one connection per
// hand controller. Commands:
//
//	dev N        select device N (default 0)
//	p            report position
//	P <x> <y>    slew to application axes
//	S            stop
//	T on|off     tracking
//	K            park
//	H            home
//
// Every command is answered with "RPRT <code>", 0 on success.
func (s *Server) ListenHandController(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing hand controller socket")
		ln.Close()
	}()
	go func() {
		for ctx.Err() == nil {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.handleHandController(ctx, conn)
		}
	}()
	return nil
}

func (s *Server) handleHandController(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	device := 0
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		log.Printf("%v command: %q args: %#v", conn.RemoteAddr(), cmd, args)
		rprt := -1
		switch cmd {
		case "dev":
			if len(args) == 1 {
				if n, err := strconv.Atoi(args[0]); err == nil {
					if _, ok := s.registry.Get(n); ok {
						device = n
						rprt = 0
					}
				}
			}
		case "p":
			inst, ok := s.registry.Get(device)
			if !ok {
				break
			}
			st := inst.Status()
			fmt.Fprintf(conn, "%.6f %.6f\n", st.Axes.X, st.Axes.Y)
			rprt = 0
		case "P":
			if len(args) != 2 {
				rprt = -22
				break
			}
			x, errX := strconv.ParseFloat(args[0], 64)
			y, errY := strconv.ParseFloat(args[1], 64)
			if errX != nil || errY != nil {
				rprt = -22
				break
			}
			rprt = s.handCommand(ctx, device, func(inst *mount.Instance) error {
				return inst.SlewTo(ctx, x, y, coords.SlewHandController, false)
			})
		case "S":
			rprt = s.handCommand(ctx, device, func(inst *mount.Instance) error {
				return inst.Abort(ctx)
			})
		case "T":
			if len(args) != 1 {
				rprt = -22
				break
			}
			rprt = s.handCommand(ctx, device, func(inst *mount.Instance) error {
				return inst.SetTracking(args[0] == "on")
			})
		case "K":
			rprt = s.handCommand(ctx, device, func(inst *mount.Instance) error {
				return inst.SlewTo(ctx, 0, 0, coords.SlewPark, false)
			})
		case "H":
			rprt = s.handCommand(ctx, device, func(inst *mount.Instance) error {
				return inst.SlewTo(ctx, 0, 0, coords.SlewHome, false)
			})
		}
		fmt.Fprintf(conn, "RPRT %d\n", rprt)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}

func (s *Server) handCommand(ctx context.Context, device int, f func(*mount.Instance) error) int {
	inst, ok := s.registry.Get(device)
	if !ok {
		return -1
	}
	if err := f(inst); err != nil {
		log.Printf("device %d: %v", device, err)
		return -9
	}
	return 0
}
