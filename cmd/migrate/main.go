// Package main applies or reverts the control plane's schema migrations
// against DATABASE_URL. Usage: migrate [up|down].
package main

import (
	"flag"
	"log"

	"github.com/R3E-Network/service_layer/internal/config"
	"github.com/R3E-Network/service_layer/internal/platform/migrations"
)

func main() {
	flag.Parse()
	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	switch direction {
	case "up":
		if err := migrations.Apply(cfg.DatabaseURL); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := migrations.Down(cfg.DatabaseURL); err != nil {
			log.Fatalf("revert migrations: %v", err)
		}
		log.Println("migrations reverted")
	default:
		log.Fatalf("unknown direction %q (expected up|down)", direction)
	}
}
