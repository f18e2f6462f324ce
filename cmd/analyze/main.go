package main

import (
	"flag"
	"log"

	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/app"
	"github.com/drakebondio04/MidgetRaceCar-Telemetry/internal/config"
)

func main() {
	configPath := flag.String("config", "telemetry.conf", "path to the config file")
	noSave := flag.Bool("nosave", false, "print the summary without recording the session")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: analyze [-config file] [-nosave] <session.csv>")
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunAnalyze(flag.Arg(0), !*noSave); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
