package ingest

import (
	"context"
	"log"

	jsoniter "github.com/json-iterator/go"

	"github.com/fortuna/huddle/internal/store"
)

// DefaultBatchSize is the maximum number of games sent in one write call
const DefaultBatchSize = 1000

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UploadResult counts the outcome of one Upload call
type UploadResult struct {
	Valid         int
	Invalid       int
	Batches       int
	FailedBatches int
	Written       int64
}

// Upserter validates games and writes them in fixed-size batches
type Upserter struct {
	writer    GameWriter
	batchSize int
	reporter  Reporter
	logger    *log.Logger
}

// NewUpserter creates an Upserter. reporter may be nil.
func NewUpserter(writer GameWriter, batchSize int, reporter Reporter, logger *log.Logger) *Upserter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}

	return &Upserter{
		writer:    writer,
		batchSize: batchSize,
		reporter:  reporter,
		logger:    logger,
	}
}

// Upload drops invalid games and writes the rest batch by batch. A failed batch is
// logged with a sample row and skipped; earlier batches stay committed.
func (u *Upserter) Upload(ctx context.Context, variant Variant, games []store.Game, policy store.ConflictPolicy) UploadResult {
	var result UploadResult

	valid := make([]store.Game, 0, len(games))
	for _, g := range games {
		if err := Validate(g); err != nil {
			u.logger.Printf("⚠️  Skipping invalid game %q: %v", g.EventName, err)
			result.Invalid++
			continue
		}
		valid = append(valid, g)
	}
	result.Valid = len(valid)

	if len(valid) == 0 {
		return result
	}

	for start, index := 0, 1; start < len(valid); start, index = start+u.batchSize, index+1 {
		end := start + u.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]
		result.Batches++

		written, err := u.writer.UpsertGames(ctx, batch, policy)
		if err != nil {
			result.FailedBatches++
			u.logger.Printf("Error processing batch %d: %v", index, err)
			u.logger.Printf("Sample game from failed batch: %s", sampleJSON(batch[0]))
		} else {
			result.Written += written
		}

		if u.reporter != nil {
			u.reporter.OnBatch(BatchResult{
				Variant: variant,
				Index:   index,
				Size:    len(batch),
				Written: written,
				Err:     err,
			})
		}
	}

	return result
}

// sampleJSON renders a game with plain values instead of sql.Null wrappers
func sampleJSON(g store.Game) string {
	sample := map[string]interface{}{
		"event_name": g.EventName,
		"status":     g.Status,
		"home_team":  nullableValue(g.HomeTeam.String, g.HomeTeam.Valid),
		"away_team":  nullableValue(g.AwayTeam.String, g.AwayTeam.Valid),
		"start_time": nullableValue(g.StartTime.Time, g.StartTime.Valid),
		"end_time":   nullableValue(g.EndTime.Time, g.EndTime.Valid),
		"sport_id":   nullableValue(g.SportID.Int64, g.SportID.Valid),
		"league_id":  nullableValue(g.LeagueID.Int64, g.LeagueID.Valid),
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return g.EventName
	}
	return string(data)
}

func nullableValue(v interface{}, valid bool) interface{} {
	if !valid {
		return nil
	}
	return v
}
