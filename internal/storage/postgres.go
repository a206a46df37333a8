package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tgtools/votebot/internal/models"
)

// PostgresStore implements Store on top of Postgres via the pgx stdlib
// driver.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS polls (
			poll_id TEXT PRIMARY KEY,
			creator_id BIGINT NOT NULL,
			creator_name TEXT NOT NULL,
			title TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS poll_options (
			poll_id TEXT NOT NULL REFERENCES polls(poll_id) ON DELETE CASCADE,
			option_index INT NOT NULL,
			option_text TEXT NOT NULL,
			PRIMARY KEY (poll_id, option_index)
		)`,
		`CREATE TABLE IF NOT EXISTS poll_votes (
			poll_id TEXT NOT NULL REFERENCES polls(poll_id) ON DELETE CASCADE,
			voter_id BIGINT NOT NULL,
			voter_name TEXT NOT NULL,
			option_index INT NOT NULL,
			voted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (poll_id, voter_id)
		)`,
	}
	for _, st := range stmts {
		if _, err := s.DB.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreatePoll(ctx context.Context, p models.NewPoll) (string, error) {
	if len(p.Options) < 2 {
		return "", ErrTooFewOptions
	}
	pollID := uuid.New().String()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO polls (poll_id, creator_id, creator_name, title, image_url)
	VALUES ($1,$2,$3,$4,$5)`,
		pollID, p.CreatorID, p.CreatorName, p.Title, p.ImageURL,
	)
	if err != nil {
		return "", err
	}
	for i, text := range p.Options {
		_, err = tx.ExecContext(ctx, `INSERT INTO poll_options (poll_id, option_index, option_text)
		VALUES ($1,$2,$3)`, pollID, i, text)
		if err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return pollID, nil
}

func (s *PostgresStore) GetPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	p := models.Poll{ID: pollID}
	err := s.DB.QueryRowContext(ctx, `SELECT creator_id, creator_name, title, image_url FROM polls WHERE poll_id=$1`, pollID).
		Scan(&p.CreatorID, &p.CreatorName, &p.Title, &p.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT option_text FROM poll_options WHERE poll_id=$1 ORDER BY option_index`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		p.Options = append(p.Options, text)
	}
	return &p, rows.Err()
}

// RecordVote relies on the (poll_id, voter_id) primary key for duplicate
// detection: the conflict-ignoring insert is atomic, so concurrent votes
// from the same voter persist exactly one row.
func (s *PostgresStore) RecordVote(ctx context.Context, pollID string, voter models.Voter, optionIndex int) (VoteOutcome, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var optionCount int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll_options WHERE poll_id=$1`, pollID).Scan(&optionCount)
	if err != nil {
		return 0, err
	}
	if optionCount == 0 {
		return 0, ErrPollNotFound
	}
	if optionIndex < 0 || optionIndex >= optionCount {
		return 0, ErrOptionNotFound
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO poll_votes (poll_id, voter_id, voter_name, option_index)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (poll_id, voter_id) DO NOTHING`,
		pollID, voter.ID, voter.Name, optionIndex,
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if affected == 0 {
		return VoteAlreadyCast, nil
	}
	return VoteAccepted, nil
}

func (s *PostgresStore) Tally(ctx context.Context, pollID string) (map[int]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT option_index, COUNT(*) FROM poll_votes WHERE poll_id=$1 GROUP BY option_index`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int]int)
	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, err
		}
		counts[idx] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) SearchPolls(ctx context.Context, substring string) ([]models.PollSummary, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT poll_id, title FROM polls WHERE title ILIKE '%' || $1 || '%' ORDER BY created_at DESC`, substring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []models.PollSummary
	for rows.Next() {
		var p models.PollSummary
		if err := rows.Scan(&p.ID, &p.Title); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
