package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/nhle/teamtrack/internal/cli"
)

var version = "dev"

func main() {
	// Load .env if present; TEAMTRACK_ variables override the config file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: reading .env: %v", err)
	}

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
