package main

import (
	"flag"
	"log"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/app"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "telemetry.conf", "path to the config file")
	calibrate := flag.Bool("calibrate", false, "force a fresh stationary calibration before logging")
	mock := flag.Bool("mock", false, "run with a synthetic IMU instead of hardware")
	flag.Parse()

	log.Println("starting midget-car telemetry logger")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunTelemetry(*calibrate, *mock); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
