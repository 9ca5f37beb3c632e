package models

import "time"

// AnalyticsDimension selects the grouping column for workload aggregation.
type AnalyticsDimension string

const (
	AnalyticsByTeacher AnalyticsDimension = "teacher"
	AnalyticsByRoom    AnalyticsDimension = "room"
	AnalyticsBySubject AnalyticsDimension = "subject"
	AnalyticsBySection AnalyticsDimension = "section"
	AnalyticsByDay     AnalyticsDimension = "day"
)

// Valid reports whether d is a supported grouping.
func (d AnalyticsDimension) Valid() bool {
	switch d {
	case AnalyticsByTeacher, AnalyticsByRoom, AnalyticsBySubject, AnalyticsBySection, AnalyticsByDay:
		return true
	}
	return false
}

// WorkloadBucket is the entry count for one key of a grouping.
type WorkloadBucket struct {
	Key     string `db:"bucket" json:"key"`
	Entries int    `db:"entries" json:"entries"`
}

// RoomUtilization relates booked entries of a room to the teaching slots available that week.
type RoomUtilization struct {
	RoomID      string  `db:"room_id" json:"room_id"`
	RoomName    string  `db:"room_name" json:"room_name"`
	Booked      int     `db:"booked" json:"booked"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// TimetableAnalytics aggregates entry counts for one school year.
type TimetableAnalytics struct {
	AcademicYearID string             `json:"academic_year_id"`
	GroupBy        AnalyticsDimension `json:"group_by"`
	TotalEntries   int                `json:"total_entries"`
	TeachingSlots  int                `json:"teaching_slots"`
	Buckets        []WorkloadBucket   `json:"buckets"`
	Rooms          []RoomUtilization  `json:"rooms,omitempty"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// SystemMetrics is a point-in-time snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ConflictsRejected        uint64    `json:"conflicts_rejected"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
