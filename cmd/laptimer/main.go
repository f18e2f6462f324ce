package main

import (
	"flag"
	"log"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/app"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "telemetry.conf", "path to the config file")
	flag.Parse()

	log.Println("starting midget-car lap timer")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunLapTimer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
