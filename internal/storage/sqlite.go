package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tgtools/votebot/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS polls (
	poll_id TEXT PRIMARY KEY,
	creator_id INTEGER NOT NULL,
	creator_name TEXT NOT NULL,
	title TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS poll_options (
	poll_id TEXT NOT NULL REFERENCES polls(poll_id) ON DELETE CASCADE,
	option_index INTEGER NOT NULL,
	option_text TEXT NOT NULL,
	PRIMARY KEY (poll_id, option_index)
);

CREATE TABLE IF NOT EXISTS poll_votes (
	poll_id TEXT NOT NULL REFERENCES polls(poll_id) ON DELETE CASCADE,
	voter_id INTEGER NOT NULL,
	voter_name TEXT NOT NULL,
	option_index INTEGER NOT NULL,
	voted_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (poll_id, voter_id)
);
`

// SQLiteStore implements Store on a local SQLite file via modernc.org/sqlite.
// It backs the standalone deployment mode and the unit tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer: concurrent connections would surface SQLITE_BUSY
	// instead of queueing on the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreatePoll(ctx context.Context, p models.NewPoll) (string, error) {
	if len(p.Options) < 2 {
		return "", ErrTooFewOptions
	}
	pollID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO polls (poll_id, creator_id, creator_name, title, image_url)
	VALUES (?,?,?,?,?)`,
		pollID, p.CreatorID, p.CreatorName, p.Title, p.ImageURL,
	)
	if err != nil {
		return "", err
	}
	for i, text := range p.Options {
		_, err = tx.ExecContext(ctx, `INSERT INTO poll_options (poll_id, option_index, option_text)
		VALUES (?,?,?)`, pollID, i, text)
		if err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return pollID, nil
}

func (s *SQLiteStore) GetPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	p := models.Poll{ID: pollID}
	err := s.db.QueryRowContext(ctx, `SELECT creator_id, creator_name, title, image_url FROM polls WHERE poll_id=?`, pollID).
		Scan(&p.CreatorID, &p.CreatorName, &p.Title, &p.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT option_text FROM poll_options WHERE poll_id=? ORDER BY option_index`, pollID)
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

func (s *SQLiteStore) RecordVote(ctx context.Context, pollID string, voter models.Voter, optionIndex int) (VoteOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var optionCount int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll_options WHERE poll_id=?`, pollID).Scan(&optionCount)
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
	VALUES (?,?,?,?)
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

func (s *SQLiteStore) Tally(ctx context.Context, pollID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT option_index, COUNT(*) FROM poll_votes WHERE poll_id=? GROUP BY option_index`, pollID)
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

func (s *SQLiteStore) SearchPolls(ctx context.Context, substring string) ([]models.PollSummary, error) {
	// SQLite LIKE is case-insensitive for ASCII, matching Postgres ILIKE
	// closely enough for title search.
	rows, err := s.db.QueryContext(ctx, `SELECT poll_id, title FROM polls WHERE title LIKE '%' || ? || '%' ORDER BY created_at DESC`, substring)
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
