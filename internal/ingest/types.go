package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/huddle/internal/ingest/sportsdb"
	"github.com/fortuna/huddle/internal/store"
)

// Variant names an ingestion traversal
type Variant string

const (
	// VariantDay fetches a window of days starting today
	VariantDay Variant = "day"
	// VariantSeason enumerates every league of every sport for one season
	VariantSeason Variant = "season"
)

// ParseVariant validates a variant name
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantDay, VariantSeason:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown ingest variant %q", s)
	}
}

// EventSource is the upstream schedule API
type EventSource interface {
	EventsByDay(ctx context.Context, day time.Time) ([]sportsdb.RawEvent, error)
	EventsBySeason(ctx context.Context, leagueID int64, season string) ([]sportsdb.RawEvent, error)
}

// SportCatalog is read-only access to stored sports
type SportCatalog interface {
	ListSports(ctx context.Context) ([]store.Sport, error)
	SportIDByName(ctx context.Context, name string) (id int, found bool, err error)
}

// GameWriter persists one batch of games and returns the number of rows written
type GameWriter interface {
	UpsertGames(ctx context.Context, games []store.Game, policy store.ConflictPolicy) (int64, error)
}

// BatchResult describes one write call made by the Upserter
type BatchResult struct {
	Variant Variant
	Index   int
	Size    int
	Written int64
	Err     error
}

// Summary aggregates the counters of one ingestion run
type Summary struct {
	Variant       Variant   `json:"variant"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Fetched       int       `json:"fetched"`
	Matched       int       `json:"matched"`
	Normalized    int       `json:"normalized"`
	MappingIssues int       `json:"mapping_issues"`
	Unique        int       `json:"unique"`
	Valid         int       `json:"valid"`
	Invalid       int       `json:"invalid"`
	Batches       int       `json:"batches"`
	FailedBatches int       `json:"failed_batches"`
	Written       int64     `json:"written"`
	FetchErrors   int       `json:"fetch_errors"`
}

// Count is the processed-games figure reported to callers. A day run counts every
// normalized event; a season run counts the deduplicated games handed to the upserter.
// Neither depends on validation or on which batches were written.
func (s Summary) Count() int {
	if s.Variant == VariantSeason {
		return s.Unique
	}
	return s.Normalized
}

func (s *Summary) addUpload(r UploadResult) {
	s.Valid += r.Valid
	s.Invalid += r.Invalid
	s.Batches += r.Batches
	s.FailedBatches += r.FailedBatches
	s.Written += r.Written
}

// Reporter receives lifecycle callbacks from the pipeline
type Reporter interface {
	OnRunStart(variant Variant)
	OnBatch(result BatchResult)
	OnRunComplete(summary Summary)
}

// Reporters fans callbacks out to every non-nil reporter
type Reporters []Reporter

func (rs Reporters) OnRunStart(variant Variant) {
	for _, r := range rs {
		if r != nil {
			r.OnRunStart(variant)
		}
	}
}

func (rs Reporters) OnBatch(result BatchResult) {
	for _, r := range rs {
		if r != nil {
			r.OnBatch(result)
		}
	}
}

func (rs Reporters) OnRunComplete(summary Summary) {
	for _, r := range rs {
		if r != nil {
			r.OnRunComplete(summary)
		}
	}
}
