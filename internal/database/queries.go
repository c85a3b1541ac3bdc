package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfsum/internal/domain"
)

const maxHistoryLimit = 50

func (d *Database) AddAnalysis(ctx context.Context, a *domain.Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	if strings.TrimSpace(a.TextHash) == "" {
		return errors.New("text hash is empty")
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `insert into analyses
	(id, chat_id, source, name, language, text_hash, result, failed, created_at)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		a.ID,
		a.ChatID,
		string(a.Source),
		a.Name,
		a.Language,
		a.TextHash,
		a.Result,
		a.Failed,
		a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	return nil
}

func (d *Database) GetRecentAnalyses(
	ctx context.Context,
	chatID int64,
	limit int,
) ([]domain.Analysis, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `select id, chat_id, source, name, language, text_hash, result, failed, created_at
	from analyses
	where chat_id = ?
	order by created_at desc, rowid desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"chatID", chatID,
				"operation", "GetRecentAnalyses")
		}
	}()

	var analyses []domain.Analysis
	for rows.Next() {
		var (
			a         domain.Analysis
			source    string
			createdAt int64
		)
		if err = rows.Scan(
			&a.ID,
			&a.ChatID,
			&source,
			&a.Name,
			&a.Language,
			&a.TextHash,
			&a.Result,
			&a.Failed,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.Source = domain.Source(source)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()

		analyses = append(analyses, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return analyses, nil
}

// GetAnalysisByHash returns the newest successful analysis of the same text,
// or nil when there is none.
func (d *Database) GetAnalysisByHash(ctx context.Context, textHash string) (*domain.Analysis, error) {
	query := `select id, chat_id, source, name, language, text_hash, result, failed, created_at
	from analyses
	where text_hash = ? and failed = 0
	order by created_at desc, rowid desc
	limit 1`

	var (
		a         domain.Analysis
		source    string
		createdAt int64
	)
	err := d.db.QueryRowContext(ctx, query, textHash).Scan(
		&a.ID,
		&a.ChatID,
		&source,
		&a.Name,
		&a.Language,
		&a.TextHash,
		&a.Result,
		&a.Failed,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	a.Source = domain.Source(source)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &a, nil
}

// PruneAnalyses deletes analyses created before the given time.
func (d *Database) PruneAnalyses(ctx context.Context, before time.Time) (int64, error) {
	query := "delete from analyses where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete analyses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get affected rows: %w", err)
	}

	return n, nil
}
