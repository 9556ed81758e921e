// Krypto Client - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"krypto-game/internal/client"
	"krypto-game/pkg/logger"
)

var (
	version       = "1.0.0"
	buildTime     = "dev"
	directoryAddr = flag.String("directory", getenv("KRYPTO_DIRECTORY", "localhost:5000"), "Directory address (host:port)")
	logLevel      = flag.String("log-level", getenv("KRYPTO_LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile       = flag.String("log-file", "", "Log file path (optional)")
)

// getenv reads an environment variable with a fallback.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	// Initialize logging
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("client")
	if *logFile != "" {
		if err := log.SetFile(*logFile); err != nil {
			log.Warn("Could not open log file %s: %v", *logFile, err)
		}
	}

	log.Info("Starting Krypto Client v%s (build %s)", version, buildTime)
	log.Info("Directory: %s", *directoryAddr)

	// Create client
	gameClient := client.NewClient(*directoryAddr, log)

	// Setup graceful shutdown
	setupGracefulShutdown(gameClient, log)

	// Start client
	if err := gameClient.Start(); err != nil {
		log.Error("Client failed: %v", err)
		os.Exit(1)
	}

	log.Info("Client shutting down gracefully")
}

// initLogging sets up the logging system
func initLogging() error {
	logger.SetGlobalLogLevel(logger.ParseLevel(*logLevel))

	if *logFile == "" {
		if err := logger.InitializeFileLogging("./logs"); err != nil {
			fmt.Fprintf(os.Stderr, "Could not initialize file logging: %v\n", err)
		}
	}
	return nil
}

// setupGracefulShutdown handles graceful shutdown on interrupt signals
func setupGracefulShutdown(gameClient *client.Client, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, closing client...")
		gameClient.Close()
		os.Exit(0)
	}()
}
