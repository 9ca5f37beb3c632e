package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

func TestEmbeddedMigrationsDeclareSlotConstraints(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/0001_timetable.up.sql")
	require.NoError(t, err)
	body := string(raw)
	for _, name := range []string{
		"uq_timetable_entries_teacher_slot",
		"uq_timetable_entries_section_slot",
		"uq_timetable_entries_room_slot",
	} {
		assert.Contains(t, body, name)
	}
	assert.Equal(t, 3, strings.Count(body, "DEFERRABLE INITIALLY IMMEDIATE"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "tt", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=tt sslmode=disable", dsn)
}
