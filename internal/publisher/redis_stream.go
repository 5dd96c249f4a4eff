package publisher

import (
	"context"
	"log"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/huddle/internal/ingest"
)

const (
	// RunsStream receives one entry per completed ingestion run
	RunsStream = "ingest.runs"

	defaultMaxLen = 1000
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStreamPublisher publishes run summaries to a Redis stream
type RedisStreamPublisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *log.Logger
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client, logger *log.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = log.New(log.Writer(), "[publisher] ", log.LstdFlags)
	}
	return &RedisStreamPublisher{
		client:  client,
		stream:  RunsStream,
		maxLen:  defaultMaxLen,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// PublishRunSummary appends a summary to the stream, trimming it to roughly maxLen entries
func (p *RedisStreamPublisher) PublishRunSummary(ctx context.Context, summary ingest.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"variant":   string(summary.Variant),
			"count":     summary.Count(),
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

// OnRunStart is a no-op; only completed runs are published.
func (p *RedisStreamPublisher) OnRunStart(variant ingest.Variant) {}

// OnBatch is a no-op.
func (p *RedisStreamPublisher) OnBatch(result ingest.BatchResult) {}

// OnRunComplete publishes the summary. Failures are logged, never propagated.
func (p *RedisStreamPublisher) OnRunComplete(summary ingest.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.PublishRunSummary(ctx, summary); err != nil {
		p.logger.Printf("⚠️  failed to publish %s summary: %v", summary.Variant, err)
	}
}
