package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/shimmering/internal/config"
	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
)

var (
	port           int
	configPath     string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&configPath, "config", "", "Path to the TOML config file")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()
	_ = godotenv.Load(".env")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Parse allowed origins
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	opts, err := cfg.Options()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	service, err := shimmering.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = cfg.DataDir
	}

	server := NewServer(service, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		AllowedOrigins: origins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
