// Krypto Room Server - Main Entry Point
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"krypto-game/internal/control"
	"krypto-game/internal/room"
	"krypto-game/pkg/logger"
)

var (
	version    = "1.0.0"
	buildTime  = "dev"
	name       = flag.String("name", "room", "Room name")
	mode       = flag.String("mode", room.ModeClassic, "Game mode (classic, competitive)")
	host       = flag.String("host", "localhost", "Listen host")
	port       = flag.Int("port", 0, "Listen port (0 picks a free port)")
	maxPlayers = flag.Int("max-players", 4, "Maximum players")
	logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile    = flag.String("log-file", "", "Log file path (optional)")
	help       = flag.Bool("help", false, "Show help information")
	ver        = flag.Bool("version", false, "Show version information")
)

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

	log := logger.New("room-" + *name)
	// Stdout carries control signals to the directory; logs go to stderr.
	log.SetOutput(os.Stderr)
	if *logFile != "" {
		if err := log.SetFile(*logFile); err != nil {
			log.Warn("Could not open log file %s: %v", *logFile, err)
		}
	}
	log.Info("Starting Krypto Room %q v%s", *name, version)

	// stdin is the puzzle supply, stdout the control channel. A room run
	// by hand still works: with no supply it generates puzzles locally.
	link := control.NewLink(os.Getpid(), os.Stdin, os.Stdout, log)

	cfg := room.Config{
		Name:       *name,
		Mode:       *mode,
		Host:       *host,
		Port:       *port,
		MaxPlayers: *maxPlayers,
	}

	r, err := room.New(cfg, link, link, log)
	if err != nil {
		link.ReportError(fmt.Sprintf("invalid configuration: %v", err))
		log.Fatal("Invalid configuration: %v", err)
	}

	// Setup graceful shutdown
	setupGracefulShutdown(r, log)

	// Start room
	if err := r.Start(); err != nil {
		log.Fatal("Room failed to start: %v", err)
	}

	<-r.Done()
	log.Info("Room %q shut down", *name)
}

// initLogging sets up the logging system
func initLogging() error {
	logger.SetGlobalLogLevel(logger.ParseLevel(*logLevel))
	// No default log directory here: rooms are short-lived children and
	// their stderr already lands in the directory's terminal.
	return nil
}

// setupGracefulShutdown handles graceful shutdown on interrupt signals
func setupGracefulShutdown(r *room.Room, log *logger.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, stopping room...")
		r.Stop()
	}()
}

// showHelp displays help information
func showHelp() {
	fmt.Printf(`Krypto Room Server v%s

USAGE:
    %s [OPTIONS]

Normally spawned by the directory, which sets every flag and wires the
standard pipes. Run by hand it serves a standalone room that generates
its own puzzles.

OPTIONS:
    -name string         Room name (default "room")
    -mode string         Game mode: classic or competitive (default "classic")
    -host string         Listen host (default "localhost")
    -port int            Listen port, 0 picks a free port (default 0)
    -max-players int     Maximum players (default 4)
    -log-level string    Set log level (DEBUG, INFO, WARN, ERROR) (default "INFO")
    -log-file string     Set log file path (optional)
    -help                Show this help message
    -version             Show version information

EXAMPLES:
    # Standalone classic room on a fixed port
    %s -name kitchen -port 5001

    # Competitive room for six players
    %s -name arena -mode competitive -max-players 6

PIPES:
    stdin    puzzle supply, one "PUZZLE|a|b|c|d|target" frame per line
    stdout   control signals to the directory, each stamped with this pid
    stderr   room logs

The room kills itself when the last player leaves or when nobody has
connected for a minute, announcing KILL_SERVER exactly once beforehand.
`, version, os.Args[0], os.Args[0], os.Args[0])
}

// showVersion displays version information
func showVersion() {
	fmt.Printf(`Krypto Room Server
Version: %s
Build Time: %s

Features:
- Round-synchronized Krypto play for up to 8 players
- Classic mode: shared puzzles, advance when everyone is done
- Competitive mode: timed scoring windows and a running score table
- Supervised by the directory over standard pipes
`, version, buildTime)
}
