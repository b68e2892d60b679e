// Package store is the pipeline's narrow view of the crawler's document
// store: read repo records with skip/limit paging, insert/export finished
// samples. Backends: JSON file, MongoDB, Postgres; selection via env.
package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"moxigen/internal/safeio"
	"moxigen/internal/types"
)

// Source reads crawled repo records. Read returns at most limit records
// starting at skip; an empty slice means the collection is exhausted.
type Source interface {
	Read(ctx context.Context, skip, limit int) ([]types.RepoRecord, error)
	Close() error
}

// SampleSink receives finished training samples. The file pipeline writes
// splits directly; DB-backed runs can also mirror samples into the store.
type SampleSink interface {
	InsertSamples(ctx context.Context, samples []types.Sample) error
}

// DefaultPageSize is used when streaming a whole collection.
const DefaultPageSize = 200

// ReadAll pages through the source until it is exhausted or max records
// (when max > 0) have been read.
func ReadAll(ctx context.Context, src Source, max int) ([]types.RepoRecord, error) {
	var out []types.RepoRecord
	skip := 0
	for {
		limit := DefaultPageSize
		if max > 0 && max-len(out) < limit {
			limit = max - len(out)
		}
		if limit <= 0 {
			return out, nil
		}
		batch, err := src.Read(ctx, skip, limit)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return out, nil
		}
		out = append(out, batch...)
		skip += len(batch)
		if len(batch) < limit {
			return out, nil
		}
	}
}

// NewSourceFromEnv picks a backend: MONGODB_URI wins, then REPO_STORE_PG_DSN,
// then the given JSON file path.
func NewSourceFromEnv(ctx context.Context, filePath string) (Source, error) {
	if uri := strings.TrimSpace(os.Getenv("MONGODB_URI")); uri != "" {
		return NewMongoSource(ctx, uri, os.Getenv("MONGODB_DB_NAME"))
	}
	if dsn := strings.TrimSpace(os.Getenv("REPO_STORE_PG_DSN")); dsn != "" {
		return NewPostgresSource(dsn)
	}
	return NewFileSource(filePath)
}

// FileSource serves records from a JSON file, either a bare array or the
// crawler's {"training_data": [...]} wrapper.
type FileSource struct {
	records []types.RepoRecord
}

func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("store: no input file configured")
	}
	var records []types.RepoRecord
	if err := safeio.ReadJSON(path, &records); err != nil {
		var wrapped struct {
			TrainingData []types.RepoRecord `json:"training_data"`
		}
		if err2 := safeio.ReadJSON(path, &wrapped); err2 != nil || wrapped.TrainingData == nil {
			return nil, fmt.Errorf("store: read %s: %w", path, err)
		}
		records = wrapped.TrainingData
	}
	return &FileSource{records: records}, nil
}

func (f *FileSource) Read(ctx context.Context, skip, limit int) ([]types.RepoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skip >= len(f.records) {
		return nil, nil
	}
	end := len(f.records)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return f.records[skip:end], nil
}

func (f *FileSource) Close() error { return nil }

// LoadChunks reads a pre-chunked features file, either a bare array or the
// {"features": [...], "num_chunks": N} shape the chunking stage writes.
func LoadChunks(path string) ([]types.Chunk, error) {
	var chunks []types.Chunk
	if err := safeio.ReadJSON(path, &chunks); err == nil {
		return chunks, nil
	}
	var wrapped struct {
		Features []types.Chunk `json:"features"`
	}
	if err := safeio.ReadJSON(path, &wrapped); err != nil {
		return nil, fmt.Errorf("store: read chunks %s: %w", path, err)
	}
	return wrapped.Features, nil
}

// SaveChunks persists the chunking stage's output in the same shape.
func SaveChunks(path string, chunks []types.Chunk) error {
	payload := struct {
		Features  []types.Chunk `json:"features"`
		NumChunks int           `json:"num_chunks"`
	}{Features: chunks, NumChunks: len(chunks)}
	return safeio.WriteJSON(path, payload)
}
