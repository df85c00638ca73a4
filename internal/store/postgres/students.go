package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jkratochvil/facemark/internal/store"
)

// Repo implements store.Repository on a PostgreSQL pool.
type Repo struct {
	pool *Pool
}

// NewRepo creates a new PostgreSQL-backed repository.
func NewRepo(pool *Pool) *Repo {
	return &Repo{pool: pool}
}

// CreateStudent inserts a new student row.
func (r *Repo) CreateStudent(ctx context.Context, s *store.Student) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (code, name, year, section, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, s.Code, s.Name, s.Year, s.Section)
	if err != nil {
		return fmt.Errorf("insert student %s: %w", s.Code, err)
	}
	return nil
}

// GetStudent retrieves a student by code.
func (r *Repo) GetStudent(ctx context.Context, code string) (*store.Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT code, name, year, section, created_at
		FROM students
		WHERE code = $1
	`, code)

	var s store.Student
	err := row.Scan(&s.Code, &s.Name, &s.Year, &s.Section, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &s, nil
}

// ListStudents returns all students ordered by code.
func (r *Repo) ListStudents(ctx context.Context) ([]store.Student, error) {
	return r.listStudents(ctx, `
		SELECT code, name, year, section, created_at
		FROM students
		ORDER BY code
	`)
}

// ListRoster returns students in the given year/section scope. Empty year
// and section mean the whole roster.
func (r *Repo) ListRoster(ctx context.Context, year, section string) ([]store.Student, error) {
	return r.listStudents(ctx, `
		SELECT code, name, year, section, created_at
		FROM students
		WHERE ($1 = '' OR year = $1)
		  AND ($2 = '' OR section = $2)
		ORDER BY code
	`, year, section)
}

func (r *Repo) listStudents(ctx context.Context, query string, args ...any) ([]store.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []store.Student
	for rows.Next() {
		var s store.Student
		if err := rows.Scan(&s.Code, &s.Name, &s.Year, &s.Section, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}
