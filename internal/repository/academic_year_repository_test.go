package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestAcademicYearRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM academic_years WHERE id = $1 AND school_id = $2")).
		WithArgs("year-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "name", "status", "created_at", "updated_at"}).
			AddRow("year-1", "school-1", "2025/2026", "ARCHIVED", now, now))

	year, err := repo.FindByID(context.Background(), "school-1", "year-1")
	require.NoError(t, err)
	assert.True(t, year.Locked())
	assert.Equal(t, models.AcademicYearArchived, year.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkingPatternRepositoryDefaultsToWorking(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWorkingPatternRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_working FROM working_patterns")).
		WithArgs("school-1", "year-1", "SATURDAY").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_working FROM working_patterns")).
		WithArgs("school-1", "year-1", "SUNDAY").
		WillReturnRows(sqlmock.NewRows([]string{"is_working"}).AddRow(false))

	working, err := repo.IsWorkingDay(context.Background(), "school-1", "year-1", models.Saturday)
	require.NoError(t, err)
	assert.True(t, working)

	working, err = repo.IsWorkingDay(context.Background(), "school-1", "year-1", models.Sunday)
	require.NoError(t, err)
	assert.False(t, working)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryCountByRejectsUnknownDimension(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	_, err := repo.CountBy(context.Background(), "school-1", "year-1", models.AnalyticsDimension("grade; DROP TABLE"))
	assert.Error(t, err)
}

func TestAnalyticsRepositoryCountByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id AS bucket, COUNT(*) AS entries FROM timetable_entries")).
		WithArgs("school-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "entries"}).AddRow("t1", 12).AddRow("t2", 8))

	buckets, err := repo.CountBy(context.Background(), "school-1", "year-1", models.AnalyticsByTeacher)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, models.WorkloadBucket{Key: "t1", Entries: 12}, buckets[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryListActiveTeachers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, subject_ids FROM teachers")).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "subject_ids"}).AddRow("t1", "Ana", "{math,physics}"))

	teachers, err := repo.ListActiveTeachers(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.True(t, teachers[0].Teaches("physics"))
	assert.False(t, teachers[0].Teaches("art"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryNilClientIsMiss(t *testing.T) {
	repo := NewCacheRepository(nil)
	var dest map[string]string
	assert.Error(t, repo.Get(context.Background(), "k", &dest))
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	assert.NoError(t, repo.Close())
}
