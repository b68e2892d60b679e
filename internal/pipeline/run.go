// Package pipeline wires the five stages end to end: read → dedup → analyze
// → chunk → synthesize → quality control → split/persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cheggaaa/pb/v3"

	"moxigen/internal/analyzer"
	"moxigen/internal/chunker"
	"moxigen/internal/config"
	"moxigen/internal/dataset"
	"moxigen/internal/llmclient"
	"moxigen/internal/qc"
	"moxigen/internal/store"
	"moxigen/internal/synth"
	"moxigen/internal/types"
)

var (
	ErrNoInput   = errors.New("pipeline: no input records or chunks")
	ErrNoSamples = errors.New("pipeline: zero samples survived quality control")
)

// Report is the run summary. It is filled in as far as the run got, so a
// partial failure still reports every stage it reached.
type Report struct {
	ReposRead      int       `json:"repos_read,omitempty"`
	ReposSkipped   int       `json:"repos_skipped,omitempty"`
	DuplicateRepos int       `json:"duplicate_repos,omitempty"`
	Chunks         int       `json:"chunks"`
	BatchesTotal   int       `json:"batches_total"`
	BatchesOK      int       `json:"batches_ok"`
	BatchesFailed  int       `json:"batches_failed"`
	QC             qc.Report `json:"quality_control"`
	TrainSamples   int       `json:"train_samples"`
	TestSamples    int       `json:"test_samples"`
	TrainPath      string    `json:"train_path,omitempty"`
	TestPath       string    `json:"test_path,omitempty"`
}

// Runner executes one dataset-assembly run.
type Runner struct {
	Cfg    *config.Config
	Client llmclient.Client
	Source store.Source // may be nil when Cfg.ChunksPath is set

	// Progress enables the terminal progress bar over batches.
	Progress bool
}

// Run executes the pipeline. Per-record and per-batch problems are counted
// and recovered; only unreadable input or an empty final dataset is an error.
// The returned report is meaningful even when err != nil.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var report Report

	chunks, err := r.collectChunks(ctx, &report)
	if err != nil {
		return report, err
	}
	if r.Cfg.Limit > 0 && len(chunks) > r.Cfg.Limit {
		chunks = chunks[:r.Cfg.Limit]
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, ErrNoInput
	}

	result, err := r.synthesize(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.BatchesTotal = result.BatchesTotal
	report.BatchesOK = result.BatchesOK
	report.BatchesFailed = result.BatchesFailed

	accepted, qcReport := qc.Filter(result.Records, qc.Thresholds{
		MinContent: r.Cfg.MinLength,
		MaxContent: r.Cfg.MaxLength,
	})
	report.QC = qcReport
	if len(accepted) == 0 {
		return report, ErrNoSamples
	}

	if err := r.persist(ctx, accepted, &report); err != nil {
		return report, err
	}
	return report, nil
}

// collectChunks either loads a pre-chunked features file or runs the
// collection half of the pipeline: read, dedup, analyze, chunk.
func (r *Runner) collectChunks(ctx context.Context, report *Report) ([]types.Chunk, error) {
	if r.Cfg.ChunksPath != "" {
		chunks, err := store.LoadChunks(r.Cfg.ChunksPath)
		if err != nil {
			return nil, err
		}
		log.Printf("pipeline: loaded %d chunks from %s", len(chunks), r.Cfg.ChunksPath)
		return chunks, nil
	}
	if r.Source == nil {
		return nil, ErrNoInput
	}

	records, err := store.ReadAll(ctx, r.Source, 0)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read collection: %w", err)
	}
	report.ReposRead = len(records)

	unique, dups := qc.DedupRepos(records)
	report.DuplicateRepos = dups

	ck, err := chunker.New(r.Cfg.MinLength, r.Cfg.MaxLength)
	if err != nil {
		return nil, err
	}

	var chunks []types.Chunk
	for _, rec := range unique {
		if rec.Readme == "" || rec.Owner == "" || rec.Repo == "" {
			report.ReposSkipped++
			continue
		}
		rep := analyzer.Analyze(rec.FileTree)
		rec.FileTree = rep.Tree
		if rec.ProjectType == "" {
			rec.ProjectType = string(rep.ProjectType)
		}
		if rec.Language == "" {
			rec.Language = string(rep.Language)
		}
		for c := range ck.Chunks(rec) {
			chunks = append(chunks, c)
		}
	}
	log.Printf("pipeline: %d repos (%d duplicates, %d skipped) -> %d chunks",
		report.ReposRead, report.DuplicateRepos, report.ReposSkipped, len(chunks))
	return chunks, nil
}

func (r *Runner) synthesize(ctx context.Context, chunks []types.Chunk) (synth.Result, error) {
	cfg := synth.Config{
		BatchSize:   r.Cfg.BatchSize,
		Concurrency: r.Cfg.Concurrency,
	}
	var bar *pb.ProgressBar
	if r.Progress {
		nBatches := len(synth.Partition(chunks, cfg.BatchSize))
		bar = pb.StartNew(nBatches)
		cfg.OnBatchDone = func() { bar.Increment() }
	}
	s := synth.New(r.Client, cfg)
	result, err := s.Run(ctx, chunks)
	if bar != nil {
		bar.Finish()
	}
	return result, err
}

func (r *Runner) persist(ctx context.Context, accepted []types.Sample, report *Report) error {
	trainPath, testPath := dataset.Paths(r.Cfg.Output)
	split, err := dataset.MakeSplit(accepted, r.Cfg.TrainSplit, r.Cfg.Seed)
	if errors.Is(err, dataset.ErrTooSmall) {
		// Not enough to split: keep everything in the train file.
		log.Printf("pipeline: %v; writing a single train file", err)
		split = dataset.Split{Train: accepted}
		testPath = ""
	} else if err != nil {
		return err
	}

	if err := dataset.Persist(split, trainPath, testPath); err != nil {
		return err
	}
	report.TrainSamples = len(split.Train)
	report.TestSamples = len(split.Test)
	report.TrainPath = trainPath
	report.TestPath = testPath

	if sink, ok := r.Source.(store.SampleSink); ok {
		if err := sink.InsertSamples(ctx, accepted); err != nil {
			log.Printf("pipeline: sample sink insert failed: %v", err)
		}
	}
	if r.Cfg.Export.Enabled {
		if err := r.export(ctx, trainPath, testPath); err != nil {
			log.Printf("pipeline: dataset export failed: %v", err)
		}
	}
	return nil
}

func (r *Runner) export(ctx context.Context, trainPath, testPath string) error {
	exp, err := dataset.NewS3Exporter(dataset.S3Config{
		Endpoint:  r.Cfg.Export.Endpoint,
		Region:    r.Cfg.Export.Region,
		AccessKey: r.Cfg.Export.AccessKey,
		SecretKey: r.Cfg.Export.SecretKey,
		Bucket:    r.Cfg.Export.Bucket,
		Prefix:    r.Cfg.Export.Prefix,
		UseSSL:    r.Cfg.Export.UseSSL,
	})
	if err != nil {
		return err
	}
	paths := []string{trainPath}
	if testPath != "" {
		paths = append(paths, testPath)
	}
	return exp.ExportFiles(ctx, paths...)
}
