package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
	ExportFormatICS  = "ics"
)

var exportContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatICS:  "text/calendar",
}

var exportHeaders = []string{"Day", "Start", "End", "Period", "Subject", "Teacher", "Section", "Room"}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(name string, events []export.CalendarEvent, stamp time.Time) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Timezone string
}

// ExportResult is a rendered timetable ready to stream.
type ExportResult struct {
	Body        []byte
	ContentType string
	Filename    string
}

// ExportService renders a section's or a teacher's weekly timetable.
type ExportService struct {
	core      *TimetableCore
	validator *validator.Validate
	location  *time.Location
	renderers map[string]datasetRenderer
	calendar  calendarRenderer
	now       func() time.Time
}

// NewExportService constructs an ExportService with the csv, pdf, xlsx and ics renderers.
func NewExportService(core *TimetableCore, cfg ExportConfig, validate *validator.Validate) *ExportService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	location := time.UTC
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			location = loc
		} else {
			core.logger.Warn("unknown export timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		}
	}
	return &ExportService{
		core:      core,
		validator: validate,
		location:  location,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV:  export.NewCSVExporter(),
			ExportFormatPDF:  export.NewPDFExporter(),
			ExportFormatXLSX: export.NewXLSXExporter(),
		},
		calendar: export.NewICSExporter(),
		now:      time.Now,
	}
}

type exportRow struct {
	entry  models.TimetableEntry
	period models.TimePeriod
}

// Export renders the timetable selected by query.
func (s *ExportService) Export(ctx context.Context, schoolID, yearID string, query dto.ExportQuery) (*ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid export query")
	}
	contentType, ok := exportContentTypes[query.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", query.Format))
	}
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return nil, err
	}

	owner, title := "section", "Timetable section "+query.SectionID
	filter := models.TimetableEntryFilter{SchoolID: schoolID, AcademicYearID: yearID, SectionID: query.SectionID}
	if query.SectionID == "" {
		owner, title = "teacher", "Timetable teacher "+query.TeacherID
		filter = models.TimetableEntryFilter{SchoolID: schoolID, AcademicYearID: yearID, TeacherID: query.TeacherID}
	}

	rows, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}

	var body []byte
	if query.Format == ExportFormatICS {
		anchor, err := s.anchor(query.StartDate)
		if err != nil {
			return nil, err
		}
		body, err = s.calendar.Render(title, s.events(rows, anchor), s.now().UTC())
		if err != nil {
			return nil, internalError(err, "failed to render calendar")
		}
	} else {
		body, err = s.renderers[query.Format].Render(dataset(title, rows))
		if err != nil {
			return nil, internalError(err, "failed to render timetable export")
		}
	}

	id := query.SectionID
	if id == "" {
		id = query.TeacherID
	}
	return &ExportResult{
		Body:        body,
		ContentType: contentType,
		Filename:    fmt.Sprintf("timetable_%s_%s.%s", owner, sanitizeFilename(id), query.Format),
	}, nil
}

// load joins the entries with their periods, ordered Monday first then by start time.
func (s *ExportService) load(ctx context.Context, filter models.TimetableEntryFilter) ([]exportRow, error) {
	entries, err := s.core.entries.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list timetable entries")
	}
	periods, err := s.core.periods.ListByYear(ctx, nil, filter.SchoolID, filter.AcademicYearID)
	if err != nil {
		return nil, internalError(err, "failed to list time periods")
	}
	byID := make(map[string]models.TimePeriod, len(periods))
	for _, p := range periods {
		byID[p.ID] = p
	}

	rows := make([]exportRow, 0, len(entries))
	for _, e := range entries {
		period, ok := byID[e.PeriodID]
		if !ok {
			continue
		}
		rows = append(rows, exportRow{entry: e, period: period})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if di, dj := rows[i].entry.Day.Index(), rows[j].entry.Day.Index(); di != dj {
			return di < dj
		}
		return rows[i].period.StartTime < rows[j].period.StartTime
	})
	return rows, nil
}

func dataset(title string, rows []exportRow) export.Dataset {
	data := export.Dataset{Title: title, Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Day":     string(r.entry.Day),
			"Start":   r.period.StartTime,
			"End":     r.period.EndTime,
			"Period":  r.period.Name,
			"Subject": r.entry.SubjectID,
			"Teacher": r.entry.TeacherID,
			"Section": r.entry.SectionID,
			"Room":    optionalString(r.entry.RoomID),
		})
	}
	return data
}

// anchor resolves the first day of the calendar, today when unset.
func (s *ExportService) anchor(raw string) (time.Time, error) {
	if raw == "" {
		now := s.now().In(s.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location), nil
	}
	date, err := time.ParseInLocation("2006-01-02", raw, s.location)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	return date, nil
}

// events places every entry in the first week on or after anchor.
func (s *ExportService) events(rows []exportRow, anchor time.Time) []export.CalendarEvent {
	events := make([]export.CalendarEvent, 0, len(rows))
	for _, r := range rows {
		day := firstOnOrAfter(anchor, r.entry.Day)
		start, errStart := clockMinutes(r.period.StartTime)
		end, errEnd := clockMinutes(r.period.EndTime)
		if errStart != nil || errEnd != nil {
			continue
		}
		events = append(events, export.CalendarEvent{
			UID:         r.entry.ID + "@timetable",
			Summary:     fmt.Sprintf("%s (%s)", r.entry.SubjectID, r.period.Name),
			Description: fmt.Sprintf("Teacher %s, section %s", r.entry.TeacherID, r.entry.SectionID),
			Location:    optionalString(r.entry.RoomID),
			Start:       atMinute(day, start),
			End:         atMinute(day, end),
		})
	}
	return events
}

// firstOnOrAfter returns the first date on or after anchor falling on day.
func firstOnOrAfter(anchor time.Time, day models.Weekday) time.Time {
	target := time.Weekday((day.Index() + 1) % 7)
	offset := (int(target) - int(anchor.Weekday()) + 7) % 7
	return anchor.AddDate(0, 0, offset)
}

func atMinute(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
