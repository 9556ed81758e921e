// Krypto Directory Server - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"krypto-game/internal/directory"
	"krypto-game/internal/supervisor"
	"krypto-game/pkg/logger"
)

var (
	version    = "1.0.0"
	buildTime  = "dev"
	host       = flag.String("host", getenv("KRYPTO_HOST", "localhost"), "Listen host")
	port       = flag.Int("port", directory.DefaultPort, "Listen port")
	maxRooms   = flag.Int("max-rooms", directory.DefaultMaxRooms, "Maximum concurrent rooms")
	roomBinary = flag.String("room-binary", getenv("KRYPTO_ROOM_BINARY", ""), "Path to the room binary (default: \"room\" next to this executable)")
	basePort   = flag.Int("base-port", supervisor.DefaultBasePort, "First port probed for room listeners")
	logLevel   = flag.String("log-level", getenv("KRYPTO_LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "Log file path (optional)")
	help       = flag.Bool("help", false, "Show help information")
	ver        = flag.Bool("version", false, "Show version information")
)

// getenv reads an environment variable with a fallback, so deployments can
// configure the directory without flags.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	// Show help
	if *help {
		showHelp()
		return
	}

	// Show version
	if *ver {
		showVersion()
		return
	}

	// Initialize logging
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("directory")
	if *logFile != "" {
		if err := log.SetFile(*logFile); err != nil {
			log.Warn("Could not open log file %s: %v", *logFile, err)
		}
	}
	log.Info("Starting Krypto Directory v%s", version)

	// Room processes are spawned on ports probed upward from base-port.
	alloc := supervisor.NewAllocator(*host, *basePort)
	spawner := supervisor.NewExecSpawner(*roomBinary, *host, *logLevel, log)
	launcher := supervisor.NewSupervisor(alloc, spawner, log)

	cfg := directory.Config{
		Host:     *host,
		Port:     *port,
		MaxRooms: *maxRooms,
	}
	dir := directory.New(cfg, launcher, log)

	// Setup graceful shutdown
	setupGracefulShutdown(dir, log)

	// Start directory
	if err := dir.Start(); err != nil {
		log.Fatal("Directory failed to start: %v", err)
	}

	log.Info("Directory listening on %s", dir.Addr())
	<-dir.Done()
	log.Info("Directory shut down")
}

// initLogging sets up the logging system
func initLogging() error {
	logger.SetGlobalLogLevel(logger.ParseLevel(*logLevel))

	// An explicit -log-file is attached to the component logger in main;
	// otherwise every logger gets a sink under ./logs.
	if *logFile == "" {
		if err := logger.InitializeFileLogging("./logs"); err != nil {
			fmt.Fprintf(os.Stderr, "Could not initialize file logging: %v\n", err)
		}
	}
	return nil
}

// setupGracefulShutdown handles graceful shutdown on interrupt signals
func setupGracefulShutdown(dir *directory.Directory, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, stopping directory...")
		dir.Stop()
	}()
}

// showHelp displays help information
func showHelp() {
	fmt.Printf(`Krypto Directory Server v%s

USAGE:
    %s [OPTIONS]

OPTIONS:
    -host string         Listen host (default "localhost")
    -port int            Listen port (default %d)
    -max-rooms int       Maximum concurrent rooms (default %d)
    -room-binary string  Path to the room binary (default: "room" next to this executable)
    -base-port int       First port probed for room listeners (default %d)
    -log-level string    Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string     Set log file path (optional)
    -help                Show this help message
    -version             Show version information

EXAMPLES:
    # Start with default settings
    %s

    # Start on all interfaces
    %s -host 0.0.0.0 -port 5000

    # Allow more rooms, rooms starting at port 6001
    %s -max-rooms 10 -base-port 6001

    # Start with debug logging
    %s -log-level DEBUG

WHAT IT DOES:
    - Accepts player connections and registers usernames
    - Lists, creates and resolves game rooms
    - Spawns one room server process per created room
    - Feeds each room puzzles over the room's standard input
    - Reads room control signals (OK, ERROR, KILL_SERVER,
      PLAYER_JOIN, PLAYER_EXIT) from the room's standard output

Players never play through the directory: after CHOOSE_ROOM they connect
to the room's own port and the directory only tracks the headcount.
`, version, os.Args[0], directory.DefaultPort, directory.DefaultMaxRooms,
		supervisor.DefaultBasePort, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

// showVersion displays version information
func showVersion() {
	fmt.Printf(`Krypto Directory Server
Version: %s
Build Time: %s

Features:
- Rendezvous point for players and rooms
- Per-room OS process supervision
- Central puzzle supply shared by every room
- Pipe-delimited text protocol over TCP
`, version, buildTime)
}
