// Package postgres keeps the emulated poll contract's state in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vncsmyrnk/near-poll/internal/adapters/contract/emulator"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
)

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) emulator.Store {
	return &store{
		db: db,
	}
}

func (s *store) CreatePoll(ctx context.Context, poll domain.Poll) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, creator, question)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.Creator, poll.Question)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryVariant := `
		INSERT INTO poll_variants (poll_id, option_id, message, position)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, queryVariant)
	if err != nil {
		return fmt.Errorf("failed to prepare variant statement: %w", err)
	}
	defer stmt.Close()

	for i, v := range poll.Variants {
		_, err = stmt.ExecContext(ctx, poll.ID, v.OptionID, v.Message, i)
		if err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *store) Poll(ctx context.Context, id string) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, creator, question
		FROM polls
		WHERE id = $1
	`

	var poll domain.Poll
	err := s.db.QueryRowContext(ctx, queryPoll, id).Scan(&poll.ID, &poll.Creator, &poll.Question)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	variants, err := s.fetchVariants(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Variants = variants

	return &poll, nil
}

func (s *store) PollsByCreator(ctx context.Context, creator string) ([]domain.PollSummary, error) {
	query := `
		SELECT id, question
		FROM polls
		WHERE creator = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var polls []domain.PollSummary
	for rows.Next() {
		var p domain.PollSummary
		if err := rows.Scan(&p.ID, &p.Question); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return polls, nil
}

func (s *store) Results(ctx context.Context, id string) (*domain.Results, error) {
	if err := s.pollExists(ctx, s.db, id); err != nil {
		return nil, err
	}

	results := &domain.Results{
		PollID:   id,
		Variants: make(map[string]int64),
		Voted:    make(map[string]int),
	}

	countRows, err := s.db.QueryContext(ctx, `SELECT option_id, vote_count FROM poll_results WHERE poll_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	defer countRows.Close()

	for countRows.Next() {
		var option string
		var count int64
		if err := countRows.Scan(&option, &count); err != nil {
			return nil, fmt.Errorf("failed to scan results: %w", err)
		}
		results.Variants[option] = count
	}
	if err := countRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	voterRows, err := s.db.QueryContext(ctx, `SELECT account_id FROM poll_voters WHERE poll_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voters: %w", err)
	}
	defer voterRows.Close()

	for voterRows.Next() {
		var account string
		if err := voterRows.Scan(&account); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		results.Voted[account] = 1
	}
	if err := voterRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voters: %w", err)
	}

	return results, nil
}

func (s *store) RecordVote(ctx context.Context, pollID, voter string, votes domain.VoteSubmission) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.pollExists(ctx, tx, pollID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO poll_voters (poll_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, pollID, voter)
	if err != nil {
		return false, fmt.Errorf("failed to record voter: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record voter: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO poll_results (poll_id, option_id, vote_count, last_updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (poll_id, option_id) DO UPDATE
		SET vote_count = poll_results.vote_count + 1,
		    last_updated_at = NOW()
	`)
	if err != nil {
		return false, fmt.Errorf("failed to prepare count statement: %w", err)
	}
	defer stmt.Close()

	for option, checked := range votes {
		if checked == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, pollID, option); err != nil {
			return false, fmt.Errorf("failed to count vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *store) pollExists(ctx context.Context, q queryRower, id string) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM polls WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to check poll: %w", err)
	}
	return nil
}

func (s *store) fetchVariants(ctx context.Context, pollID string) ([]domain.Variant, error) {
	queryVariants := `
		SELECT option_id, message
		FROM poll_variants
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, queryVariants, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.OptionID, &v.Message); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return variants, nil
}
