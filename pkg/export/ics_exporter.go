package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// CalendarEvent is one weekly recurring lesson.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// ICSExporter renders weekly recurring events as an iCalendar feed.
type ICSExporter struct {
	productID string
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{productID: "-//sma-timetable-api//timetable//EN"}
}

// Render builds a PUBLISH calendar where every event repeats weekly from its first occurrence.
func (e *ICSExporter) Render(name string, events []CalendarEvent, stamp time.Time) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetName(name)
	}

	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		event := cal.AddEvent(ev.UID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(ev.Start)
		event.SetEndAt(ev.End)
		event.SetSummary(ev.Summary)
		if ev.Description != "" {
			event.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			event.SetLocation(ev.Location)
		}
		event.AddRrule("FREQ=WEEKLY")
	}
	return []byte(cal.Serialize()), nil
}
