package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/app"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/config"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

var header = []string{"game_id", "ply", "color", "san", "label", "centipawn_loss", "delta", "accuracy", "explanation_status", "explanation"}

func main() {
	var (
		kind       = flag.String("store", "file", "store kind: file or postgres")
		dir        = flag.String("dir", "./data/reviews", "file store directory")
		dsn        = flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres DSN")
		outputPath = flag.String("output", "reviews.csv", "output CSV file (.zst suffix compresses)")
	)
	flag.Parse()

	ctx := context.Background()
	s, err := app.OpenStore(ctx, config.StoreConfig{Kind: *kind, Dir: *dir, DatabaseURL: *dsn})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	outFile, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	var out io.Writer = outFile
	var zw *zstd.Encoder
	if strings.HasSuffix(*outputPath, ".zst") {
		zw, err = zstd.NewWriter(outFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create zstd writer: %v\n", err)
			os.Exit(1)
		}
		out = zw
	}

	games, rows, err := export(ctx, s, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close zstd writer: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Done! Exported %d moves from %d games to %s\n", rows, games, *outputPath)
}

// export writes one CSV row per stored move review.
func export(ctx context.Context, s store.Store, w io.Writer) (games, rows int, err error) {
	ids, err := s.GameIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		reviews, err := s.Reviews(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return games, rows, fmt.Errorf("game %s: %w", id, err)
		}
		games++
		for _, r := range reviews {
			row := []string{
				r.GameID,
				strconv.Itoa(r.Ply),
				r.Color,
				r.SAN,
				string(r.Label),
				strconv.Itoa(r.CentipawnLoss),
				strconv.Itoa(r.Delta),
				strconv.FormatFloat(r.Accuracy, 'f', 1, 64),
				r.ExplanationStatus,
				r.Explanation,
			}
			if err := writer.Write(row); err != nil {
				return games, rows, err
			}
			rows++
		}
	}
	writer.Flush()
	return games, rows, writer.Error()
}
