package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/pmguide/pkg/domain"
)

// SaveProgress replaces the user's progress row and task list.
func (s *Store) SaveProgress(ctx context.Context, p *domain.UserProgress) error {
	completed, err := json.Marshal(p.CompletedSteps)
	if err != nil {
		return fmt.Errorf("marshal completed steps: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO application_progress (user_id, current_step, completed_steps, total_steps, start_date, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_step = excluded.current_step,
			completed_steps = excluded.completed_steps,
			total_steps = excluded.total_steps,
			start_date = excluded.start_date,
			last_updated = excluded.last_updated`,
		p.UserID, p.CurrentStep, string(completed), p.TotalSteps, nullTime(p.StartDate), nullTime(p.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}

	for i, t := range p.Tasks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, seq, name, description, status, due_date, created_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, p.UserID, i, t.Name, t.Description, string(t.Status),
			nullTime(t.DueDate), t.CreatedAt.UnixNano(), nullTime(t.UpdatedAt), nullTime(t.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("insert task %q: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

// LoadProgress returns domain.ErrUserNotFound when the user has no row.
func (s *Store) LoadProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	p := domain.NewUserProgress(userID)

	var (
		completedJSON      string
		startDate, lastUpd sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT current_step, completed_steps, total_steps, start_date, last_updated
		FROM application_progress WHERE user_id = ?`, userID,
	).Scan(&p.CurrentStep, &completedJSON, &p.TotalSteps, &startDate, &lastUpd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	if err := json.Unmarshal([]byte(completedJSON), &p.CompletedSteps); err != nil {
		return nil, fmt.Errorf("unmarshal completed steps: %w", err)
	}
	if p.CompletedSteps == nil {
		p.CompletedSteps = []string{}
	}
	p.StartDate = fromNull(startDate)
	p.LastUpdated = fromNull(lastUpd)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, due_date, created_at, updated_at, completed_at
		FROM tasks WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                      domain.Task
			status                 string
			created                int64
			due, updated, finished sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &status, &due, &created, &updated, &finished); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = domain.TaskStatus(status)
		t.CreatedAt = time.Unix(0, created).UTC()
		t.DueDate = fromNull(due)
		t.UpdatedAt = fromNull(updated)
		t.CompletedAt = fromNull(finished)
		p.Tasks = append(p.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return p, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
