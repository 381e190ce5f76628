package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
)

// InsertLives adds items to the feed in one transaction. Items inserted later
// sort first.
func (s *Store) InsertLives(items []model.LiveItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx(context.Background())
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lives (id, nickname, title, started_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		var title sql.NullString
		if it.Title != nil {
			title = sql.NullString{String: *it.Title, Valid: true}
		}
		started := it.StartedAt
		if started.IsZero() {
			started = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.UserInfo.Nickname, title, started.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert live %s: %w", it.ID, err)
		}
	}

	return tx.Commit()
}

// EndLive removes a live from the feed. It returns ErrNotFound when the id is
// unknown or already ended.
func (s *Store) EndLive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx(context.Background())
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE lives SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("end live %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end live %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalLiveCount returns the number of lives currently on the feed.
func (s *Store) TotalLiveCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(context.Background())
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lives WHERE ended_at IS NULL`).Scan(&count)
	return count, err
}

// FetchLives returns up to limit lives, newest first, starting after cursor.
// The returned NextCursor is empty when no further rows exist.
func (s *Store) FetchLives(ctx context.Context, cursor string, limit int) (model.Page, error) {
	if limit <= 0 {
		limit = model.DefaultPageSize
	}

	var after int64
	if cursor != "" {
		seq, err := decodeCursor(cursor)
		if err != nil {
			return model.Page{}, err
		}
		after = seq
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `SELECT seq, id, nickname, title, started_at FROM lives WHERE ended_at IS NULL`
	args := []interface{}{}
	if after > 0 {
		query += ` AND seq < ?`
		args = append(args, after)
	}
	// One extra row tells us whether another page exists.
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Page{}, err
	}
	defer rows.Close()

	page := model.Page{Items: make([]model.LiveItem, 0, limit)}
	var lastSeq int64
	hasMore := false
	for rows.Next() {
		if len(page.Items) == limit {
			hasMore = true
			break
		}
		var (
			seq   int64
			it    model.LiveItem
			title sql.NullString
		)
		if err := rows.Scan(&seq, &it.ID, &it.UserInfo.Nickname, &title, &it.StartedAt); err != nil {
			log.Printf("duckdb scan error (FetchLives): %v", err)
			continue
		}
		if title.Valid {
			it.Title = &title.String
		}
		page.Items = append(page.Items, it)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, err
	}

	if hasMore && lastSeq > 0 {
		page.NextCursor = encodeCursor(lastSeq)
	}
	return page, nil
}
