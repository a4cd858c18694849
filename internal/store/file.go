package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const fileExt = ".json.zst"

// FileStore keeps one zstd-compressed JSON document per game under Dir.
// Writes go to a temp file and are renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex // serializes read-modify-write of game files

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	now     func() time.Time
}

// NewFileStore opens (and creates) a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &FileStore{dir: dir, encoder: encoder, decoder: decoder, now: time.Now}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// load reads a game document. A missing file yields an empty document.
func (s *FileStore) load(id string) (*gameDoc, error) {
	compressed, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return newGameDoc(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read game %s: %w", id, err)
	}
	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress game %s: %w", id, err)
	}
	d := newGameDoc(id)
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	if d.Analyses == nil {
		d.Analyses = make(map[int]MoveAnalysis)
	}
	if d.Reviews == nil {
		d.Reviews = make(map[int]MoveReview)
	}
	return d, nil
}

func (s *FileStore) save(d *gameDoc) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", d.GameID, err)
	}
	compressed := s.encoder.EncodeAll(data, nil)

	tmp, err := os.CreateTemp(s.dir, "."+d.GameID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write game %s: %w", d.GameID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(d.GameID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename game %s: %w", d.GameID, err)
	}
	return nil
}

// update applies fn to the game's document and persists the result.
func (s *FileStore) update(id string, fn func(d *gameDoc) error) error {
	if err := CheckID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load(id)
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	return s.save(d)
}

// read loads a game without creating it.
func (s *FileStore) read(id string) (*gameDoc, error) {
	if err := CheckID(id); err != nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *FileStore) PutAnalysis(_ context.Context, a MoveAnalysis) error {
	return s.update(a.GameID, func(d *gameDoc) error {
		d.putAnalysis(a, s.now())
		return nil
	})
}

func (s *FileStore) Analyses(_ context.Context, gameID string) ([]MoveAnalysis, error) {
	d, err := s.read(gameID)
	if err != nil {
		return nil, err
	}
	if len(d.Analyses) == 0 {
		return nil, ErrNotFound
	}
	return d.analyses(), nil
}

func (s *FileStore) PutReview(_ context.Context, r MoveReview) error {
	return s.update(r.GameID, func(d *gameDoc) error {
		d.putReview(r, s.now())
		return nil
	})
}

func (s *FileStore) AttachExplanation(_ context.Context, gameID string, ply int, text, status string) error {
	if CheckID(gameID) != nil {
		return ErrNotFound
	}
	return s.update(gameID, func(d *gameDoc) error {
		return d.attach(ply, text, status, s.now())
	})
}

func (s *FileStore) Review(_ context.Context, gameID string, ply int) (MoveReview, error) {
	d, err := s.read(gameID)
	if err != nil {
		return MoveReview{}, err
	}
	r, ok := d.Reviews[ply]
	if !ok {
		return MoveReview{}, ErrNotFound
	}
	return r, nil
}

func (s *FileStore) Reviews(_ context.Context, gameID string) ([]MoveReview, error) {
	d, err := s.read(gameID)
	if err != nil {
		return nil, err
	}
	if len(d.Reviews) == 0 {
		return nil, ErrNotFound
	}
	return d.reviews(), nil
}

func (s *FileStore) PutSummary(_ context.Context, sum GameSummary) error {
	return s.update(sum.GameID, func(d *gameDoc) error {
		if sum.CreatedAt.IsZero() {
			sum.CreatedAt = s.now()
		}
		d.Summary = &sum
		return nil
	})
}

func (s *FileStore) Summary(_ context.Context, gameID string) (GameSummary, error) {
	d, err := s.read(gameID)
	if err != nil {
		return GameSummary{}, err
	}
	if d.Summary == nil {
		return GameSummary{}, ErrNotFound
	}
	return *d.Summary, nil
}

func (s *FileStore) GameIDs(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return nil
}
