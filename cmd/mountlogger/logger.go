// Command mountlogger subscribes to a mountd device status websocket and
// writes each update to InfluxDB, tagged by device number and name.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

func main() {
	client := influxdb2.NewClient(envOr("INFLUX_SERVER", "http://localhost:9999"), os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	writeApi := client.WriteApi(envOr("INFLUX_ORG", "openscope"), envOr("INFLUX_BUCKET", "mount.raw"))
	defer writeApi.Close()
	go func() {
		for err := range writeApi.Errors() {
			log.Printf("write error: %v", err)
		}
	}()
	url := envOr("MOUNTD_ADDRESS", "ws://localhost:8502/api/device/0/ws")
	for {
		if err := logStatus(writeApi, url); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// flatten turns a nested status document into dotted field names.
func flatten(fields map[string]interface{}, v interface{}, prefix string) {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(fields, child, prefix+"."+k)
		}
	case []interface{}:
		for i, child := range v {
			flatten(fields, child, fmt.Sprintf("%s.%d", prefix, i))
		}
	default:
		fields[prefix[1:]] = v
	}
}

func logStatus(writeApi api.WriteApi, url string) error {
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var status map[string]interface{}
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		// Device identity becomes tags; everything else is a field.
		tags := make(map[string]string)
		if n, ok := status["number"].(float64); ok {
			tags["device"] = strconv.Itoa(int(n))
			delete(status, "number")
		}
		if name, ok := status["name"].(string); ok {
			tags["name"] = name
			delete(status, "name")
		}
		fields := make(map[string]interface{})
		flatten(fields, status, "")

		writeApi.WritePoint(influxdb2.NewPoint("mount.status", tags, fields, time.Now()))
	}
}
