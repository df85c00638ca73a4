package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/jkratochvil/facemark/internal/store"
)

// SaveDetection appends one entry to the detection audit log. The embedding
// is stored as a pgvector value so detections can be re-scored offline.
func (r *Repo) SaveDetection(ctx context.Context, ev *store.DetectionEvent) error {
	var embedding any
	if len(ev.Embedding) > 0 {
		embedding = pgvector.NewVector(ev.Embedding)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO detection_events
			(id, student_code, label, distance, known, bbox_top, bbox_right, bbox_bottom, bbox_left, embedding, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`, ev.ID, ev.StudentCode, ev.Label, ev.Distance, ev.Known,
		ev.Top, ev.Right, ev.Bottom, ev.Left, embedding, ev.Source)
	if err != nil {
		return fmt.Errorf("insert detection event: %w", err)
	}
	return nil
}

// ListDetections returns the most recent audit-log entries, newest first.
// An empty studentCode returns entries for all students.
func (r *Repo) ListDetections(ctx context.Context, studentCode string, limit int) ([]store.DetectionEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, student_code, label, distance, known, bbox_top, bbox_right, bbox_bottom, bbox_left, embedding, source, created_at
		FROM detection_events
		WHERE ($1 = '' OR student_code = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, studentCode, limit)
	if err != nil {
		return nil, fmt.Errorf("query detection events: %w", err)
	}
	defer rows.Close()

	var events []store.DetectionEvent
	for rows.Next() {
		var (
			ev  store.DetectionEvent
			raw []byte
		)
		if err := rows.Scan(&ev.ID, &ev.StudentCode, &ev.Label, &ev.Distance, &ev.Known,
			&ev.Top, &ev.Right, &ev.Bottom, &ev.Left, &raw, &ev.Source, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		if raw != nil {
			var vec pgvector.Vector
			if err := vec.Scan(raw); err != nil {
				return nil, fmt.Errorf("parse embedding: %w", err)
			}
			ev.Embedding = vec.Slice()
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection events: %w", err)
	}
	return events, nil
}
