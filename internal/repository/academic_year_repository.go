package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// AcademicYearRepository reads academic years for the lock gate.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository builds the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// FindByID returns the year scoped to the school or sql.ErrNoRows.
func (r *AcademicYearRepository) FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	const query = `SELECT id, school_id, name, status, created_at, updated_at FROM academic_years WHERE id = $1 AND school_id = $2`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// WorkingPatternRepository reads the per-weekday working calendar.
type WorkingPatternRepository struct {
	db *sqlx.DB
}

// NewWorkingPatternRepository builds the repository.
func NewWorkingPatternRepository(db *sqlx.DB) *WorkingPatternRepository {
	return &WorkingPatternRepository{db: db}
}

// IsWorkingDay reports whether day is a working day. A missing pattern row means working.
func (r *WorkingPatternRepository) IsWorkingDay(ctx context.Context, schoolID, yearID string, day models.Weekday) (bool, error) {
	const query = `SELECT is_working FROM working_patterns WHERE school_id = $1 AND academic_year_id = $2 AND day = $3`
	var working bool
	if err := r.db.GetContext(ctx, &working, query, schoolID, yearID, string(day)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("find working pattern: %w", err)
	}
	return working, nil
}
