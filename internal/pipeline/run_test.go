package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"moxigen/internal/config"
	"moxigen/internal/dataset"
	"moxigen/internal/llm"
	"moxigen/internal/safeio"
	"moxigen/internal/store"
	"moxigen/internal/types"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Output:      filepath.Join(dir, "training_dataset.json"),
		BatchSize:   3,
		MinLength:   20,
		MaxLength:   120,
		TrainSplit:  0.9,
		Seed:        42,
		Concurrency: 2,
	}
}

func writeCollection(t *testing.T, dir string, records []types.RepoRecord) store.Source {
	t.Helper()
	path := filepath.Join(dir, "collection.json")
	require.NoError(t, safeio.WriteJSON(path, records))
	src, err := store.NewFileSource(path)
	require.NoError(t, err)
	return src
}

func longReadme(n int) string {
	sentence := "This project provides a command line interface for syncing files across machines."
	return strings.TrimSpace(strings.Repeat(sentence+" ", n))
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := writeCollection(t, dir, []types.RepoRecord{
		{Owner: "octo", Repo: "syncer", RepoURL: "https://github.com/octo/syncer",
			Readme: longReadme(6), FileTree: types.FileTree{"main.py", "setup.py"}},
		{Owner: "octo", Repo: "syncer", Readme: "duplicate, never chunked",
			FileTree: types.FileTree{"main.py"}},
		{Owner: "dup", Repo: "lib", RepoURL: "https://github.com/dup/lib",
			Readme: longReadme(6), FileTree: types.FileTree{"go.mod", "main.go"}},
		{Owner: "", Repo: "broken", Readme: "missing owner, skipped"},
	})
	defer src.Close()

	r := &Runner{Cfg: testConfig(dir), Client: llm.NewFakeClient(), Source: src}
	report, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 4, report.ReposRead)
	require.Equal(t, 1, report.DuplicateRepos)
	require.Equal(t, 1, report.ReposSkipped)
	require.Greater(t, report.Chunks, 2)
	require.Equal(t, report.BatchesTotal, report.BatchesOK)
	require.Zero(t, report.BatchesFailed)
	require.Equal(t, report.QC.Accepted, report.TrainSamples+report.TestSamples)
	require.NotZero(t, report.TrainSamples)

	var train []types.Sample
	require.NoError(t, safeio.ReadJSON(report.TrainPath, &train))
	require.Len(t, train, report.TrainSamples)
	for _, s := range train {
		require.NotEmpty(t, s.Instruction)
		require.NotEmpty(t, s.Content)
		require.NotEmpty(t, s.Input.FileTree)
	}
	if report.TestPath != "" {
		var test []types.Sample
		require.NoError(t, safeio.ReadJSON(report.TestPath, &test))
		require.Len(t, test, report.TestSamples)
	}
}

func TestRunLimitCapsChunks(t *testing.T) {
	dir := t.TempDir()
	src := writeCollection(t, dir, []types.RepoRecord{
		{Owner: "octo", Repo: "syncer", Readme: longReadme(8),
			FileTree: types.FileTree{"main.py"}},
	})
	defer src.Close()

	cfg := testConfig(dir)
	cfg.Limit = 2
	r := &Runner{Cfg: cfg, Client: llm.NewFakeClient(), Source: src}
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Chunks)
	require.Equal(t, 2, report.TrainSamples+report.TestSamples)
}

func TestRunFromChunksFile(t *testing.T) {
	dir := t.TempDir()
	chunksPath := filepath.Join(dir, "chunks.json")
	chunks := []types.Chunk{
		{Text: longReadme(1), FileTree: types.FileTree{"main.py"}, ProjectType: "library"},
		{Text: longReadme(1), FileTree: types.FileTree{"go.mod"}, ProjectType: "cli"},
	}
	require.NoError(t, store.SaveChunks(chunksPath, chunks))

	cfg := testConfig(dir)
	cfg.ChunksPath = chunksPath
	r := &Runner{Cfg: cfg, Client: llm.NewFakeClient()}
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Chunks)
	require.Zero(t, report.ReposRead, "collection stage skipped")
	require.Equal(t, 2, report.TrainSamples+report.TestSamples)
}

func TestRunNoInput(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Cfg: testConfig(dir), Client: llm.NewFakeClient()}
	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNoInput)
}

func TestRunAllSamplesRejected(t *testing.T) {
	dir := t.TempDir()
	chunksPath := filepath.Join(dir, "chunks.json")
	chunks := []types.Chunk{
		{Text: "tiny", FileTree: types.FileTree{"main.py"}, ProjectType: "library"},
		{Text: "small", FileTree: types.FileTree{"go.mod"}, ProjectType: "cli"},
	}
	require.NoError(t, store.SaveChunks(chunksPath, chunks))

	cfg := testConfig(dir)
	cfg.ChunksPath = chunksPath
	cfg.MinLength = 1000
	cfg.MaxLength = 2000
	r := &Runner{Cfg: cfg, Client: llm.NewFakeClient()}
	report, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNoSamples)
	require.Equal(t, 2, report.QC.Rejected)
}

func TestRunSingleSampleSkipsTestSplit(t *testing.T) {
	dir := t.TempDir()
	chunksPath := filepath.Join(dir, "chunks.json")
	chunks := []types.Chunk{
		{Text: longReadme(1), FileTree: types.FileTree{"main.py"}, ProjectType: "library"},
	}
	require.NoError(t, store.SaveChunks(chunksPath, chunks))

	cfg := testConfig(dir)
	cfg.ChunksPath = chunksPath
	r := &Runner{Cfg: cfg, Client: llm.NewFakeClient()}
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.TrainSamples)
	require.Zero(t, report.TestSamples)
	require.Empty(t, report.TestPath)

	_, testPath := dataset.Paths(cfg.Output)
	require.NoFileExists(t, testPath)
}
