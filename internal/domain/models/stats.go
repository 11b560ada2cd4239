package models

import (
	"fmt"
	"time"
)

// StatsCategory selects which set of counters a stats widget shows.
type StatsCategory string

const (
	StatsPublic  StatsCategory = "public"
	StatsAdmin   StatsCategory = "admin"
	StatsFaculty StatsCategory = "faculty"
)

// StatsCategories lists every supported category in display order.
var StatsCategories = []StatsCategory{StatsPublic, StatsAdmin, StatsFaculty}

// ParseStatsCategory validates a category string from a URL or config value.
func ParseStatsCategory(s string) (StatsCategory, error) {
	switch c := StatsCategory(s); c {
	case StatsPublic, StatsAdmin, StatsFaculty:
		return c, nil
	}
	return "", fmt.Errorf("unknown stats category %q", s)
}

// StatsField names one counter in StatsCounters.
type StatsField string

const (
	FieldUsers          StatsField = "totalUsers"
	FieldResources      StatsField = "totalResources"
	FieldDownloads      StatsField = "totalDownloads"
	FieldActiveSessions StatsField = "activeSessions"
	FieldStudents       StatsField = "totalStudents"
	FieldFaculty        StatsField = "totalFaculty"
	FieldRecentUploads  StatsField = "recentUploads"
)

// Fields returns the counters shown for a category, in card order.
func (c StatsCategory) Fields() []StatsField {
	switch c {
	case StatsAdmin:
		return []StatsField{FieldUsers, FieldStudents, FieldFaculty, FieldResources, FieldDownloads, FieldActiveSessions}
	case StatsFaculty:
		return []StatsField{FieldStudents, FieldResources, FieldRecentUploads, FieldDownloads}
	default:
		return []StatsField{FieldUsers, FieldResources, FieldDownloads, FieldActiveSessions}
	}
}

// StatsCounters is the "stats" object served by /api/stats/{category}.
// Every field is optional; a nil counter was not reported.
type StatsCounters struct {
	Users          *int64    `json:"totalUsers,omitempty"`
	Resources      *int64    `json:"totalResources,omitempty"`
	Downloads      *int64    `json:"totalDownloads,omitempty"`
	ActiveSessions *int64    `json:"activeSessions,omitempty"`
	Students       *int64    `json:"totalStudents,omitempty"`
	Faculty        *int64    `json:"totalFaculty,omitempty"`
	RecentUploads  *int64    `json:"recentUploads,omitempty"`
	Status         string    `json:"status,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}

// Value returns the counter for f and whether it was reported.
func (s StatsCounters) Value(f StatsField) (int64, bool) {
	var p *int64
	switch f {
	case FieldUsers:
		p = s.Users
	case FieldResources:
		p = s.Resources
	case FieldDownloads:
		p = s.Downloads
	case FieldActiveSessions:
		p = s.ActiveSessions
	case FieldStudents:
		p = s.Students
	case FieldFaculty:
		p = s.Faculty
	case FieldRecentUploads:
		p = s.RecentUploads
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Count is a helper for building StatsCounters literals.
func Count(n int64) *int64 { return &n }

// FallbackStatsCounters returns the fixed demo values shown whenever a
// fetch fails. A fresh copy is returned on every call.
func FallbackStatsCounters() StatsCounters {
	return StatsCounters{
		Users:          Count(1250),
		Resources:      Count(3480),
		Downloads:      Count(15600),
		ActiveSessions: Count(89),
		Students:       Count(980),
		Faculty:        Count(120),
		RecentUploads:  Count(45),
		Status:         "demo",
	}
}

// StatsSource says where a snapshot's counters came from.
type StatsSource string

const (
	SourceLive     StatsSource = "live"
	SourceFallback StatsSource = "fallback"
)

// StatsOutcome classifies the fetch that produced a snapshot.
// Offline (stats service unreachable) and Error (service answered but
// failed) both display fallback counters but are reported separately.
type StatsOutcome string

const (
	OutcomePending StatsOutcome = "pending"
	OutcomeLive    StatsOutcome = "live"
	OutcomeOffline StatsOutcome = "offline"
	OutcomeError   StatsOutcome = "error"
)

// StatsSnapshot is the latest statistics record a widget displays.
type StatsSnapshot struct {
	Category  StatsCategory `json:"category"`
	Counters  StatsCounters `json:"stats"`
	Source    StatsSource   `json:"source"`
	Outcome   StatsOutcome  `json:"outcome"`
	Message   string        `json:"message,omitempty"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Seq       uint64        `json:"seq"`
}

// PendingSnapshot is what a widget shows before its first fetch completes.
func PendingSnapshot(c StatsCategory) StatsSnapshot {
	return StatsSnapshot{
		Category: c,
		Counters: FallbackStatsCounters(),
		Source:   SourceFallback,
		Outcome:  OutcomePending,
	}
}
