// Package ingest watches a drop folder and reviews every game in the PGN files
// placed there.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/review"
)

// Reviewer reviews one PGN game.
type Reviewer interface {
	ReviewPGN(ctx context.Context, gameID, pgnText string) (review.Report, error)
}

// Config configures the ingest worker.
type Config struct {
	WatchDir     string         // Directory to watch for PGN files
	ProcessedDir string         // Files move here once every game was attempted
	PollInterval time.Duration  // How often to check for new files
	Workers      int            // Files reviewed in parallel (default 1)
	Logger       zerolog.Logger // Logger
}

// Worker watches a folder and reviews PGN files.
type Worker struct {
	cfg Config
	rv  Reviewer
	log zerolog.Logger
}

// NewWorker creates a new ingest worker. It returns nil when WatchDir is empty.
func NewWorker(cfg Config, rv Reviewer) (*Worker, error) {
	if cfg.WatchDir == "" {
		return nil, nil
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.WatchDir, "processed")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if err := os.MkdirAll(cfg.WatchDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ProcessedDir, 0755); err != nil {
		return nil, err
	}

	return &Worker{
		cfg: cfg,
		rv:  rv,
		log: cfg.Logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// Run polls the watch directory until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Str("watch_dir", w.cfg.WatchDir).
		Str("processed_dir", w.cfg.ProcessedDir).
		Msg("ingest worker started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessNewFiles(ctx); err != nil {
				w.log.Warn().Err(err).Msg("process files failed")
			}
		}
	}
}

// FileResult summarizes one processed file.
type FileResult struct {
	Name     string
	Games    int
	Reviewed int
	Failed   int
	Err      error
}

// ProcessNewFiles reviews every PGN file currently in the watch directory.
// A file is moved to the processed directory once all its games were attempted;
// a file that could not be read stays where it is for the next poll.
func (w *Worker) ProcessNewFiles(ctx context.Context) ([]FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isPGNFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Strings(files)
	w.log.Info().Int("files", len(files)).Int("workers", w.cfg.Workers).Msg("found PGN files")

	fileChan := make(chan string, len(files))
	resultChan := make(chan FileResult, len(files))

	var wg sync.WaitGroup
	for range w.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileChan {
				if err := ctx.Err(); err != nil {
					resultChan <- FileResult{Name: name, Err: err}
					continue
				}
				resultChan <- w.processFile(ctx, name)
			}
		}()
	}
	for _, name := range files {
		fileChan <- name
	}
	close(fileChan)
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]FileResult, 0, len(files))
	for res := range resultChan {
		results = append(results, res)
		if res.Err != nil {
			w.log.Error().Err(res.Err).Str("file", res.Name).Msg("ingest failed")
			continue
		}
		src := filepath.Join(w.cfg.WatchDir, res.Name)
		dst := filepath.Join(w.cfg.ProcessedDir, res.Name)
		if err := os.Rename(src, dst); err != nil {
			w.log.Warn().Err(err).Str("file", res.Name).Msg("move to processed failed")
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (w *Worker) processFile(ctx context.Context, name string) FileResult {
	res := FileResult{Name: name}
	start := time.Now()

	games, err := readGames(filepath.Join(w.cfg.WatchDir, name))
	if err != nil {
		res.Err = err
		return res
	}
	res.Games = len(games)

	base := GameIDPrefix(name)
	for i, text := range games {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		id := fmt.Sprintf("%s-%d", base, i+1)
		rep, err := w.rv.ReviewPGN(ctx, id, text)
		if err != nil {
			res.Failed++
			w.log.Warn().Err(err).Str("file", name).Str("game_id", id).Msg("review failed")
			continue
		}
		res.Reviewed++
		w.log.Debug().
			Str("game_id", id).
			Int("explained", rep.Batch.Generated).
			Int("explain_errors", len(rep.Batch.Errors)).
			Msg("game reviewed")
	}

	w.log.Info().
		Str("file", name).
		Int("games", res.Games).
		Int("reviewed", res.Reviewed).
		Int("failed", res.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("file ingest complete")
	return res
}

// readGames opens a .pgn or .pgn.zst file and splits it into games.
func readGames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return SplitGames(r)
}

// SplitGames splits a multi-game PGN stream. A tag line that follows movetext
// starts a new game. Games with no movetext are dropped.
func SplitGames(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		games    []string
		cur      strings.Builder
		hasMoves bool
	)
	flush := func() {
		if hasMoves {
			games = append(games, cur.String())
		}
		cur.Reset()
		hasMoves = false
	}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "["):
			if hasMoves {
				flush()
			}
		case line != "" && !strings.HasPrefix(line, "%"):
			hasMoves = true
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return games, nil
}

// GameIDPrefix turns a file name into a store-safe id prefix.
func GameIDPrefix(name string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(name), ".zst"), ".pgn")
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if len(id) > 100 {
		id = id[:100]
	}
	if id == "" {
		id = "game"
	}
	return id
}

func isPGNFile(name string) bool {
	return strings.HasSuffix(name, ".pgn") || strings.HasSuffix(name, ".pgn.zst")
}
