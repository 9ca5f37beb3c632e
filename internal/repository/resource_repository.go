package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ResourceRepository reads teachers, rooms and subject allocations owned by other modules.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository builds the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ListActiveTeachers returns the school's active teachers with their subject preferences.
func (r *ResourceRepository) ListActiveTeachers(ctx context.Context, schoolID string) ([]models.TeacherOption, error) {
	const query = `SELECT id, full_name, subject_ids FROM teachers WHERE school_id = $1 AND active ORDER BY full_name ASC`
	var teachers []models.TeacherOption
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// ListActiveRooms returns the school's active rooms.
func (r *ResourceRepository) ListActiveRooms(ctx context.Context, schoolID string) ([]models.Room, error) {
	const query = `SELECT id, name, capacity FROM rooms WHERE school_id = $1 AND active ORDER BY name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, schoolID); err != nil {
		return nil, fmt.Errorf("list active rooms: %w", err)
	}
	return rooms, nil
}

// TeacherExists reports whether the teacher belongs to the school.
func (r *ResourceRepository) TeacherExists(ctx context.Context, schoolID, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM teachers WHERE id = $1 AND school_id = $2)`, id, schoolID); err != nil {
		return false, fmt.Errorf("check teacher: %w", err)
	}
	return exists, nil
}

// RoomExists reports whether the room belongs to the school.
func (r *ResourceRepository) RoomExists(ctx context.Context, schoolID, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1 AND school_id = $2)`, id, schoolID); err != nil {
		return false, fmt.Errorf("check room: %w", err)
	}
	return exists, nil
}

// ListAllocations returns the planned subjects of a section for the year.
func (r *ResourceRepository) ListAllocations(ctx context.Context, schoolID, yearID, sectionID string) ([]models.SubjectAllocation, error) {
	const query = `SELECT id, section_id, subject_id, teacher_id, periods_per_week FROM section_subject_allocations
WHERE school_id = $1 AND academic_year_id = $2 AND section_id = $3 ORDER BY subject_id ASC`
	var allocations []models.SubjectAllocation
	if err := r.db.SelectContext(ctx, &allocations, query, schoolID, yearID, sectionID); err != nil {
		return nil, fmt.Errorf("list subject allocations: %w", err)
	}
	return allocations, nil
}
