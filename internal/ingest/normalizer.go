package ingest

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/store"
)

const (
	// unscheduledTimestamp is TheSportsDB's placeholder for "no time yet"
	unscheduledTimestamp = "0000-00-00T00:00:00"

	// assumedGameDuration is a fixed estimate; the source has no end time
	assumedGameDuration = 4 * time.Hour
)

// notStartedStatuses are raw statuses that normalize to scheduled. An absent status does too;
// an empty string does not.
var notStartedStatuses = map[string]bool{
	"Not Started":        true,
	"NS":                 true,
	"Time to be defined": true,
}

// timestampLayouts are tried after a "Z" suffix is appended to the raw value
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// IssueReason tags why part of an event could not be mapped
type IssueReason string

const (
	IssueTimestampInvalid IssueReason = "timestamp_invalid"
	IssueSportUnresolved  IssueReason = "sport_unresolved"
	IssueLeagueInvalid    IssueReason = "league_invalid"
	IssueEventNameMissing IssueReason = "event_name_missing"
)

// MappingIssue is a field that fell back to null during normalization
type MappingIssue struct {
	Reason IssueReason
	Detail string
}

func (i MappingIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Reason, i.Detail)
}

// Resolution carries the ids the orchestrator resolved for an event
type Resolution struct {
	SportID  sql.NullInt64
	LeagueID sql.NullInt64
}

// Mapped is the tagged result of NormalizeEvent. Game is always populated;
// Issues lists every field that could not be mapped.
type Mapped struct {
	Game   store.Game
	Issues []MappingIssue
}

// OK reports whether the event mapped without issues
func (m Mapped) OK() bool {
	return len(m.Issues) == 0
}

// NormalizeEvent maps a raw event into a game. It never fails: unmappable fields become
// null and are reported as issues.
func NormalizeEvent(ev sportsdb.RawEvent, res Resolution, now time.Time) Mapped {
	var issues []MappingIssue

	start, end, err := scheduleWindow(ev.Timestamp)
	if err != nil {
		issues = append(issues, MappingIssue{Reason: IssueTimestampInvalid, Detail: err.Error()})
	}

	if !res.SportID.Valid {
		issues = append(issues, MappingIssue{Reason: IssueSportUnresolved, Detail: fmt.Sprintf("sport %q", ev.Sport)})
	}
	if !res.LeagueID.Valid {
		issues = append(issues, MappingIssue{Reason: IssueLeagueInvalid, Detail: fmt.Sprintf("league %q", ev.LeagueID)})
	}

	eventName := strings.TrimSpace(ev.Event)
	if eventName == "" {
		issues = append(issues, MappingIssue{Reason: IssueEventNameMissing, Detail: fmt.Sprintf("event id %q", ev.ID)})
	}

	return Mapped{
		Game: store.Game{
			HomeTeam:  nullString(ev.HomeTeam),
			AwayTeam:  nullString(ev.AwayTeam),
			EventName: eventName,
			StartTime: start,
			EndTime:   end,
			Status:    NormalizeStatus(ev.Status),
			CreatedAt: now.UTC(),
			SportID:   res.SportID,
			LeagueID:  res.LeagueID,
		},
		Issues: issues,
	}
}

// NormalizeStatus collapses the source's status vocabulary into scheduled or finished
func NormalizeStatus(raw *string) string {
	if raw == nil || notStartedStatuses[*raw] {
		return store.GameStatusScheduled
	}
	return store.GameStatusFinished
}

// scheduleWindow interprets the raw timestamp as UTC. Absent, empty and unscheduled
// timestamps yield two null times and no error.
func scheduleWindow(raw *string) (start, end sql.NullTime, err error) {
	if raw == nil || *raw == "" || *raw == unscheduledTimestamp {
		return start, end, nil
	}

	value := *raw + "Z"
	for _, layout := range timestampLayouts {
		t, parseErr := time.Parse(layout, value)
		if parseErr != nil {
			continue
		}
		t = t.UTC()
		return sql.NullTime{Time: t, Valid: true}, sql.NullTime{Time: t.Add(assumedGameDuration), Valid: true}, nil
	}

	return start, end, fmt.Errorf("unparseable timestamp %q", *raw)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	v := strings.TrimSpace(*s)
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
