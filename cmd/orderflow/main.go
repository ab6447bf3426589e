package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"orderflow/config"
	"orderflow/internal/app"
)

func main() {
	// Config
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("config error: %s", err)
		}
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config error: %s", err)
	}

	// Run
	app.Run(cfg)
}
