package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/openscope/mountd/config"
	"github.com/openscope/mountd/interlock"
	"github.com/openscope/mountd/mount"
)

var (
	configPath = flag.String("config", "mountd.yaml", "configuration file")
	listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	registry := mount.NewRegistry(ctx)
	for _, d := range cfg.Devices {
		mcfg, err := d.MountConfig()
		if err != nil {
			log.Fatal(err)
		}
		if _, err := registry.Create(d.Number, mcfg, d.Name); err != nil {
			log.Fatal(err)
		}
		log.Printf("registered device %d (%s, %s %s)", d.Number, d.Name, d.Geometry, d.Mount)
	}

	if cfg.Interlock.Port != "" {
		_, err := interlock.Connect(ctx, cfg.Interlock.Port, cfg.Interlock.Baud, func(status interlock.Status) {
			for _, inst := range registry.All() {
				inst.SetMovingDisabled(!status.Power)
			}
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	server := NewServer(registry)
	go server.Run(ctx)

	if cfg.HandControllerListen != "" {
		if err := server.ListenHandController(ctx, cfg.HandControllerListen); err != nil {
			log.Fatal(err)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/devices", server.DevicesHandler).Methods("GET")
	r.HandleFunc("/api/device/{device}", server.RemoveHandler).Methods("DELETE")
	r.HandleFunc("/api/device/{device}/status", server.StatusHandler).Methods("GET")
	r.HandleFunc("/api/device/{device}/slew", server.SlewHandler).Methods("POST")
	r.HandleFunc("/api/device/{device}/abort", server.AbortHandler).Methods("POST")
	r.HandleFunc("/api/device/{device}/tracking", server.TrackingHandler).Methods("POST")
	r.HandleFunc("/api/device/{device}/sync", server.SyncHandler).Methods("POST")
	r.HandleFunc("/api/device/{device}/ws", server.StatusSocketHandler)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("listening on %s", cfg.Listen)
	log.Fatal(srv.ListenAndServe())
}
