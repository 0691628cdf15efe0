package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-users-api/internal/smoke"
	"github.com/oksasatya/go-users-api/pkg/client"
)

func main() {
	_ = godotenv.Load()

	def := os.Getenv("API_BASE_URL")
	if def == "" {
		def = client.DefaultBaseURL
	}
	baseURL := flag.String("url", def, "API base URL")
	flag.Parse()

	res, err := smoke.NewRunner(client.New(*baseURL), os.Stdout).Run(context.Background())
	if err != nil {
		log.Printf("smoke run aborted: %v", err)
		os.Exit(1)
	}
	if len(res.Mismatches()) > 0 {
		os.Exit(1)
	}
}
