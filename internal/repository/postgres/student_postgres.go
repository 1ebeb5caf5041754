package postgres

import (
	"context"
	"database/sql"
	"errors"

	"regapi/internal/model"
	"regapi/internal/repository"
)

// StudentPostgres is a PostgreSQL implementation of repository.StudentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type StudentPostgres struct {
	db *sql.DB
}

// NewStudentPostgres creates a new StudentPostgres repository.
func NewStudentPostgres(db *sql.DB) *StudentPostgres {
	return &StudentPostgres{db: db}
}

var _ repository.StudentRepository = (*StudentPostgres)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const studentColumns = `id, pid, first_name, middle_name, last_name, email, is_active, photo_path, version, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (*model.Student, error) {
	var s model.Student
	if err := sc.Scan(
		&s.ID,
		&s.PID,
		&s.FirstName,
		&s.MiddleName,
		&s.LastName,
		&s.Email,
		&s.IsActive,
		&s.PhotoPath,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentPostgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Create inserts the root row and every child in one transaction.
func (r *StudentPostgres) Create(ctx context.Context, s *model.Student) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		const q = `
			INSERT INTO students (pid, first_name, middle_name, last_name, email, is_active, photo_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, version
		`
		if err := tx.QueryRowContext(ctx, q,
			s.PID,
			s.FirstName,
			s.MiddleName,
			s.LastName,
			s.Email,
			s.IsActive,
			s.PhotoPath,
			s.CreatedAt,
			s.UpdatedAt,
		).Scan(&s.ID, &s.Version); err != nil {
			return err
		}
		return saveChildren(ctx, tx, s, false)
	})
}

// FindByPID fetches one aggregate with all of its children.
func (r *StudentPostgres) FindByPID(ctx context.Context, pid string) (*model.Student, error) {
	const q = `SELECT ` + studentColumns + ` FROM students WHERE pid = $1`
	s, err := scanStudent(r.db.QueryRowContext(ctx, q, pid))
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, r.db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns aggregates newest first using LIMIT/OFFSET pagination and a total count.
func (r *StudentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Student], error) {
	const qCount = `SELECT COUNT(*) FROM students`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// LIMIT NULL is the same as omitting the limit.
	var limit any
	if pq.Limit > 0 {
		limit = pq.Limit
	}
	const qList = `
		SELECT ` + studentColumns + `
		FROM students
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if err := loadChildren(ctx, r.db, &items[i]); err != nil {
			return nil, err
		}
	}

	return &repository.PageResult[model.Student]{
		Items: items,
		Total: total,
	}, nil
}

// Save writes the root row guarded by version, then reconciles every child table.
func (r *StudentPostgres) Save(ctx context.Context, s *model.Student) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		const q = `
			UPDATE students
			SET first_name = $1, middle_name = $2, last_name = $3, email = $4, is_active = $5,
			    photo_path = $6, updated_at = $7, version = version + 1
			WHERE id = $8 AND version = $9
			RETURNING version
		`
		var version int
		err := tx.QueryRowContext(ctx, q,
			s.FirstName,
			s.MiddleName,
			s.LastName,
			s.Email,
			s.IsActive,
			s.PhotoPath,
			s.UpdatedAt,
			s.ID,
			s.Version,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		if err := saveChildren(ctx, tx, s, true); err != nil {
			return err
		}
		s.Version = version
		return nil
	})
}

// Delete removes the root row; child rows go with it through ON DELETE CASCADE.
func (r *StudentPostgres) Delete(ctx context.Context, pid string, version int) error {
	const q = `DELETE FROM students WHERE pid = $1 AND version = $2`
	res, err := r.db.ExecContext(ctx, q, pid, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}
