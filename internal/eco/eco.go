// Package eco names the opening of a game from its first moves.
package eco

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/pgn/v3"
)

//go:embed data/openings.tsv
var builtin embed.FS

// Opening represents an ECO opening classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
	// Plies is how many moves of the game the opening line covers.
	Plies int `json:"plies"`
}

// Database holds ECO opening data indexed by position.
type Database struct {
	byPosition map[pgn.PackedPosition]Opening
	maxPlies   int
	count      int
}

// NewDatabase creates an empty ECO database.
func NewDatabase() *Database {
	return &Database{
		byPosition: make(map[pgn.PackedPosition]Opening),
	}
}

// Default returns a database of common openings compiled into the binary.
func Default() *Database {
	db := NewDatabase()
	data, err := builtin.ReadFile("data/openings.tsv")
	if err != nil {
		panic(err)
	}
	if err := db.Load(bytes.NewReader(data)); err != nil {
		panic(err)
	}
	return db
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads all .tsv files from a directory.
func (db *Database) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}
	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return db.Load(f)
}

// Load reads "eco<TAB>name<TAB>moves" lines. Lines whose moves do not replay
// are skipped.
func (db *Database) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		sans := splitMoves(parts[2])
		pos, err := replay(sans)
		if err != nil {
			continue
		}
		db.byPosition[pos.Pack()] = Opening{ECO: parts[0], Name: parts[1], Plies: len(sans)}
		if len(sans) > db.maxPlies {
			db.maxPlies = len(sans)
		}
		db.count++
	}
	return scanner.Err()
}

func splitMoves(text string) []string {
	cleaned := moveNumberRegex.ReplaceAllString(text, "")
	var out []string
	for _, san := range strings.Fields(cleaned) {
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		out = append(out, san)
	}
	return out
}

func replay(sans []string) (*pgn.GameState, error) {
	pos := pgn.NewStartingPosition()
	for _, san := range sans {
		if err := apply(pos, san); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

func apply(pos *pgn.GameState, san string) error {
	san = strings.TrimRight(san, "+#!?")
	mv, err := pgn.ParseSAN(pos, san)
	if err != nil {
		return fmt.Errorf("parse %q: %w", san, err)
	}
	if err := pgn.ApplyMove(pos, mv); err != nil {
		return fmt.Errorf("apply %q: %w", san, err)
	}
	return nil
}

// LookupMoves replays SAN moves from the initial position and returns the
// deepest named opening reached, or nil. Transpositions count.
func (db *Database) LookupMoves(sans []string) *Opening {
	pos := pgn.NewStartingPosition()
	var found *Opening
	for i, san := range sans {
		if i >= db.maxPlies {
			break
		}
		if err := apply(pos, san); err != nil {
			break
		}
		if o, ok := db.byPosition[pos.Pack()]; ok {
			o := o
			found = &o
		}
	}
	return found
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}
