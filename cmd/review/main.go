// Command review runs one game review from the command line and prints the
// report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/app"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/config"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", os.Getenv("REVIEW_CONFIG"), "YAML config file (optional)")
		inputPath  = flag.String("input", "-", "PGN file to review (- for stdin)")
		gameID     = flag.String("id", "", "game id (default: random)")
		depth      = flag.Int("depth", 0, "engine depth (overrides config)")
		noLLM      = flag.Bool("no-llm", false, "skip explanations")
		logLevel   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	if *noLLM {
		// Applied through the environment so a missing API key does not fail validation.
		os.Setenv("LLM_PROVIDER", "none")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if *depth > 0 {
		cfg.Engine.Depth = *depth
	}
	logger := logx.New("console", *logLevel)

	text, err := readInput(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wire service: %v\n", err)
		return 1
	}
	defer a.Close()

	rep, reviewErr := a.Service.ReviewPGN(ctx, *gameID, text)
	if reviewErr != nil {
		fmt.Fprintf(os.Stderr, "review: %v\n", reviewErr)
		if rep.GameID == "" {
			return 1
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(os.Stderr, "write report: %v\n", err)
		return 1
	}
	if reviewErr != nil {
		// partial report
		return 2
	}
	return 0
}

func readInput(path string) (string, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		in = f
	}
	b, err := io.ReadAll(in)
	return string(b), err
}
