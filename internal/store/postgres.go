package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

const schema = `
create table if not exists move_analyses (
	game_id    text        not null,
	ply        integer     not null,
	data       jsonb       not null,
	created_at timestamptz not null default now(),
	primary key (game_id, ply)
);
create table if not exists move_reviews (
	game_id            text        not null,
	ply                integer     not null,
	label              text        not null,
	centipawn_loss     integer     not null,
	data               jsonb       not null,
	explanation        text        not null default '',
	explanation_status text        not null default '',
	updated_at         timestamptz not null default now(),
	primary key (game_id, ply)
);
create table if not exists game_summaries (
	game_id    text        primary key,
	data       jsonb       not null,
	created_at timestamptz not null default now()
);`

// PGStore keeps records in Postgres through the pgx database/sql driver.
type PGStore struct{ DB *sql.DB }

// NewPGStore wraps an open database.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{DB: db} }

// OpenPostgres connects to dsn, checks the connection and creates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := NewPGStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PGStore) PutAnalysis(ctx context.Context, a MoveAnalysis) error {
	if err := CheckID(a.GameID); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	js, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	const q = `
insert into move_analyses(game_id, ply, data, created_at)
values ($1,$2,$3,$4)
on conflict (game_id, ply)
do update set data=excluded.data, created_at=excluded.created_at`
	_, err = s.DB.ExecContext(ctx, q, a.GameID, a.Ply, js, a.CreatedAt)
	return err
}

func (s *PGStore) Analyses(ctx context.Context, gameID string) ([]MoveAnalysis, error) {
	const q = `select data from move_analyses where game_id=$1 order by ply`
	rows, err := s.DB.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MoveAnalysis
	for rows.Next() {
		var js []byte
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var a MoveAnalysis
		if err := json.Unmarshal(js, &a); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// PutReview keeps the stored explanation when the new classification has the
// same label and loss.
func (s *PGStore) PutReview(ctx context.Context, r MoveReview) error {
	if err := CheckID(r.GameID); err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()
	explanation, status := r.Explanation, r.ExplanationStatus
	r.Explanation, r.ExplanationStatus = "", ""
	js, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	const q = `
insert into move_reviews(game_id, ply, label, centipawn_loss, data, explanation, explanation_status, updated_at)
values ($1,$2,$3,$4,$5,$6,$7,$8)
on conflict (game_id, ply)
do update set
	data=excluded.data,
	explanation = case
		when excluded.explanation <> '' then excluded.explanation
		when move_reviews.label = excluded.label and move_reviews.centipawn_loss = excluded.centipawn_loss then move_reviews.explanation
		else '' end,
	explanation_status = case
		when excluded.explanation <> '' then excluded.explanation_status
		when move_reviews.label = excluded.label and move_reviews.centipawn_loss = excluded.centipawn_loss then move_reviews.explanation_status
		else '' end,
	label=excluded.label,
	centipawn_loss=excluded.centipawn_loss,
	updated_at=excluded.updated_at`
	_, err = s.DB.ExecContext(ctx, q, r.GameID, r.Ply, string(r.Label), r.CentipawnLoss, js, explanation, status, r.UpdatedAt)
	return err
}

func (s *PGStore) AttachExplanation(ctx context.Context, gameID string, ply int, text, status string) error {
	const q = `
update move_reviews set explanation=$3, explanation_status=$4, updated_at=now()
where game_id=$1 and ply=$2`
	res, err := s.DB.ExecContext(ctx, q, gameID, ply, text, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReview(sc interface{ Scan(...any) error }) (MoveReview, error) {
	var (
		js          []byte
		explanation string
		status      string
		updated     time.Time
	)
	if err := sc.Scan(&js, &explanation, &status, &updated); err != nil {
		return MoveReview{}, err
	}
	var r MoveReview
	if err := json.Unmarshal(js, &r); err != nil {
		return MoveReview{}, fmt.Errorf("decode review: %w", err)
	}
	r.Explanation = explanation
	r.ExplanationStatus = status
	r.UpdatedAt = updated
	return r, nil
}

func (s *PGStore) Review(ctx context.Context, gameID string, ply int) (MoveReview, error) {
	const q = `
select data, explanation, explanation_status, updated_at
from move_reviews where game_id=$1 and ply=$2`
	r, err := scanReview(s.DB.QueryRowContext(ctx, q, gameID, ply))
	if errors.Is(err, sql.ErrNoRows) {
		return MoveReview{}, ErrNotFound
	}
	return r, err
}

func (s *PGStore) Reviews(ctx context.Context, gameID string) ([]MoveReview, error) {
	const q = `
select data, explanation, explanation_status, updated_at
from move_reviews where game_id=$1 order by ply`
	rows, err := s.DB.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MoveReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *PGStore) PutSummary(ctx context.Context, sum GameSummary) error {
	if err := CheckID(sum.GameID); err != nil {
		return err
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	js, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	const q = `
insert into game_summaries(game_id, data, created_at)
values ($1,$2,$3)
on conflict (game_id)
do update set data=excluded.data, created_at=excluded.created_at`
	_, err = s.DB.ExecContext(ctx, q, sum.GameID, js, sum.CreatedAt)
	return err
}

func (s *PGStore) Summary(ctx context.Context, gameID string) (GameSummary, error) {
	const q = `select data from game_summaries where game_id=$1`
	var js []byte
	if err := s.DB.QueryRowContext(ctx, q, gameID).Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GameSummary{}, ErrNotFound
		}
		return GameSummary{}, err
	}
	var sum GameSummary
	if err := json.Unmarshal(js, &sum); err != nil {
		return GameSummary{}, fmt.Errorf("decode summary: %w", err)
	}
	return sum, nil
}

func (s *PGStore) GameIDs(ctx context.Context) ([]string, error) {
	const q = `
select game_id from move_analyses
union select game_id from move_reviews
union select game_id from game_summaries
order by 1`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) Close() error { return s.DB.Close() }
