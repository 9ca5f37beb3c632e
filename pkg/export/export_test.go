package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Section 10A",
		Headers: []string{"Day", "Period", "Subject"},
		Rows: []map[string]string{
			{"Day": "MONDAY", "Period": "Period 1", "Subject": "math"},
			{"Day": "TUESDAY", "Period": "Period 2", "Subject": "physics"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Day,Period,Subject", lines[0])
	assert.Equal(t, "TUESDAY,Period 2,physics", lines[2])

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Section 10A", title)
	header, _ := f.GetCellValue(xlsxSheet, "C2")
	assert.Equal(t, "Subject", header)
	value, _ := f.GetCellValue(xlsxSheet, "A4")
	assert.Equal(t, "TUESDAY", value)
}

func TestICSExporterRender(t *testing.T) {
	start := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	events := []CalendarEvent{{
		UID:      "entry-1@timetable",
		Summary:  "math",
		Location: "room-a",
		Start:    start,
		End:      start.Add(45 * time.Minute),
	}}
	out, err := NewICSExporter().Render("Section 10A", events, start)
	require.NoError(t, err)
	body := string(out)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY")
	assert.Contains(t, body, "UID:entry-1@timetable")
	assert.Contains(t, body, "SUMMARY:math")

	_, err = NewICSExporter().Render("", []CalendarEvent{{UID: "bad", Start: start, End: start}}, start)
	assert.Error(t, err)
}
