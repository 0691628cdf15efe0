package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-users-api/internal/seed"
	"github.com/oksasatya/go-users-api/pkg/client"
)

func main() {
	_ = godotenv.Load()

	count := flag.Int("n", 5, "number of random users to add")
	baseURL := flag.String("url", getenv("API_BASE_URL", client.DefaultBaseURL), "API base URL")
	rngSeed := flag.Uint64("seed", 0, "generator seed, 0 picks a random one")
	flag.Parse()

	s := seed.New(client.New(*baseURL), seed.NewGenerator(*rngSeed), os.Stdout)
	if _, err := s.Run(context.Background(), *count); err != nil {
		if errors.Is(err, client.ErrConnection) {
			os.Exit(1)
		}
		log.Fatalf("seed failed: %v", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
