// bizcoach: Business Coach MCP Server
//
// An MCP server that scores how sophisticated a business owner is,
// finds their main constraint, routes them to the right workspace and
// hands out one gamified challenge per day.
//
// Usage:
//
//	bizcoach serve         # Start MCP server (stdio transport)
//	bizcoach assess        # Classify a JSON answer set from stdin
//	bizcoach pregenerate   # Create today's challenge for every user
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/bizcoach/internal/coach"
	"github.com/HendryAvila/bizcoach/internal/config"
	"github.com/HendryAvila/bizcoach/internal/logger"
	"github.com/HendryAvila/bizcoach/internal/scoring"
	coachserver "github.com/HendryAvila/bizcoach/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = run()
	case "assess":
		err = runAssess(os.Stdin, os.Stdout)
	case "pregenerate":
		err = runPregenerate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("bizcoach v%s\n", coachserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Logs always go to
// stderr so they never mix with the MCP stream on stdout.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log.Mode, logger.Options{
		Level:    cfg.Log.Level,
		HashSalt: cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, log, nil
}

func run() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	s, cleanup, err := coachserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runPregenerate() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := coachserver.Pregenerate(ctx, cfg, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Generated challenges for %d users\n", n)
	return nil
}

// assessInput is the stdin document for "bizcoach assess": the onboarding
// answers plus the optional explicit constraint choice.
type assessInput struct {
	scoring.Input
	Constraint string `json:"constraint,omitempty"`
}

// runAssess classifies one answer set without touching the store and
// writes the decision as JSON.
func runAssess(r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in assessInput
	if err := dec.Decode(&in); err != nil {
		return fmt.Errorf("reading answers from stdin: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d := coach.Classify(in.Input, in.Constraint, nil, cfg.Resolver())
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `bizcoach v%s · Business Coach MCP Server

Usage:
  bizcoach serve         Start the MCP server (stdio transport)
  bizcoach assess        Read onboarding answers as JSON on stdin, print the decision
  bizcoach pregenerate   Create today's challenge for every known user
  bizcoach version       Print the version

Configuration:
  ~/.bizcoach/config.yaml, ./.bizcoach/config.yaml or BIZCOACH_CONFIG,
  overridden by BIZCOACH_* environment variables.

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "bizcoach": {
        "command": "bizcoach",
        "args": ["serve"]
      }
    }
  }

Example:
  echo '{"revenue_bucket":"$10K-$100K","cac":120,"ltv":900,"constraint":"sales"}' | bizcoach assess
`, coachserver.Version)
}
