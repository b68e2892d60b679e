// Package synth turns chunks into instruction records by asking an external
// generation service for one instruction per chunk, batch by batch. Batches
// are independent: a failed batch is dropped and counted, never partially
// paired with its chunks.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"moxigen/internal/llmclient"
	"moxigen/internal/types"
)

var (
	ErrCountMismatch    = errors.New("synth: instruction count does not match batch size")
	ErrEmptyInstruction = errors.New("synth: service returned an empty instruction")
	ErrNoChunks         = errors.New("synth: no chunks to process")
)

const (
	DefaultBatchSize   = 3
	DefaultConcurrency = 4
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

type Config struct {
	BatchSize   int
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration

	// OnBatchDone, if set, is called after every batch completes (either
	// way). Used for progress reporting; called from worker goroutines.
	OnBatchDone func()
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Result reports what one run produced. Records are in chunk order:
// cross-batch ordering is preserved even under concurrent dispatch.
type Result struct {
	Records       []types.InstructionRecord
	BatchesTotal  int
	BatchesOK     int
	BatchesFailed int
}

type Synthesizer struct {
	client llmclient.Client
	cfg    Config
}

func New(client llmclient.Client, cfg Config) *Synthesizer {
	return &Synthesizer{client: client, cfg: cfg.withDefaults()}
}

// Run partitions chunks into batches of at most BatchSize, dispatches them
// concurrently up to the configured limit, and reassembles results in batch
// order. Per-batch failures are counted and recovered; Run only errors when
// it could not attempt any batch at all.
func (s *Synthesizer) Run(ctx context.Context, chunks []types.Chunk) (Result, error) {
	if len(chunks) == 0 {
		return Result{}, ErrNoChunks
	}

	batches := Partition(chunks, s.cfg.BatchSize)
	perBatch := make([][]types.InstructionRecord, len(batches))
	var ok, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			recs, err := s.processBatch(gctx, batch)
			if s.cfg.OnBatchDone != nil {
				s.cfg.OnBatchDone()
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Printf("synth: batch %d/%d dropped after %d attempts: %v",
					i+1, len(batches), s.cfg.MaxAttempts, err)
				return nil
			}
			ok.Add(1)
			perBatch[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var records []types.InstructionRecord
	for _, recs := range perBatch {
		records = append(records, recs...)
	}
	return Result{
		Records:       records,
		BatchesTotal:  len(batches),
		BatchesOK:     int(ok.Load()),
		BatchesFailed: int(failed.Load()),
	}, nil
}

// Partition splits chunks into batches of size <= batchSize. The last batch
// may be shorter; no batch is ever empty.
func Partition(chunks []types.Chunk, batchSize int) [][]types.Chunk {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var out [][]types.Chunk
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		out = append(out, chunks[start:end])
	}
	return out
}

// processBatch issues the generation request with bounded retries and pairs
// the validated instructions 1:1, in order, with the batch's chunks.
func (s *Synthesizer) processBatch(ctx context.Context, batch []types.Chunk) ([]types.InstructionRecord, error) {
	instructions, err := s.requestInstructions(ctx, batch)
	if err != nil {
		return nil, err
	}
	records := make([]types.InstructionRecord, len(batch))
	for i, c := range batch {
		records[i] = types.NewRecord(instructions[i], c)
	}
	return records, nil
}

// requestInstructions retries the request+parse+validate round trip up to
// MaxAttempts with exponential backoff. A response of the wrong length or
// with empty items counts as a failed attempt, same as a transport error.
func (s *Synthesizer) requestInstructions(ctx context.Context, batch []types.Chunk) ([]string, error) {
	prompt, input := buildRequest(batch)
	var last error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BaseDelay * time.Duration(1<<(attempt-1))):
			}
		}
		raw, err := s.client.GenerateJSON(ctx, prompt, input)
		if err != nil {
			var pErr *llmclient.PermanentError
			if errors.As(err, &pErr) {
				return nil, err
			}
			last = err
			continue
		}
		instructions, err := parseInstructions(raw)
		if err != nil {
			last = err
			continue
		}
		if err := validateInstructions(instructions, len(batch)); err != nil {
			last = err
			continue
		}
		return instructions, nil
	}
	return nil, last
}

func validateInstructions(instructions []string, want int) error {
	if len(instructions) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(instructions), want)
	}
	for i, ins := range instructions {
		if ins == "" {
			return fmt.Errorf("%w: item %d", ErrEmptyInstruction, i+1)
		}
	}
	return nil
}
