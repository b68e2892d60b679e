package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"moxigen/internal/safeio"
	"moxigen/internal/types"
)

func mkSamples(n int) []types.Sample {
	out := make([]types.Sample, n)
	for i := range out {
		out[i] = types.Sample{
			Instruction: fmt.Sprintf("instruction %02d", i),
			Input:       types.SampleInput{FileTree: types.FileTree{"main.py"}, ProjectType: "library"},
			Content:     fmt.Sprintf("content %02d", i),
		}
	}
	return out
}

func contents(samples []types.Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Content
	}
	sort.Strings(out)
	return out
}

func TestMakeSplitDisjointUnion(t *testing.T) {
	samples := mkSamples(20)
	split, err := MakeSplit(samples, 0.9, DefaultSeed)
	require.NoError(t, err)
	require.Len(t, split.Train, 18)
	require.Len(t, split.Test, 2)

	union := append(contents(split.Train), contents(split.Test)...)
	sort.Strings(union)
	require.Equal(t, contents(samples), union)

	seen := make(map[string]bool)
	for _, s := range split.Train {
		seen[s.Content] = true
	}
	for _, s := range split.Test {
		require.False(t, seen[s.Content], "sample %q in both partitions", s.Content)
	}
}

func TestMakeSplitIsDeterministicPerSeed(t *testing.T) {
	samples := mkSamples(30)
	a, err := MakeSplit(samples, 0.8, 7)
	require.NoError(t, err)
	b, err := MakeSplit(samples, 0.8, 7)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := MakeSplit(samples, 0.8, 8)
	require.NoError(t, err)
	require.NotEqual(t, a, c, "different seeds shuffle differently")
}

func TestMakeSplitDoesNotMutateInput(t *testing.T) {
	samples := mkSamples(10)
	orig := contents(samples)
	_, err := MakeSplit(samples, 0.9, 1)
	require.NoError(t, err)
	for i, s := range samples {
		require.Equal(t, fmt.Sprintf("content %02d", i), s.Content)
	}
	require.Equal(t, orig, contents(samples))
}

func TestMakeSplitTooSmall(t *testing.T) {
	_, err := MakeSplit(mkSamples(1), 0.9, DefaultSeed)
	require.ErrorIs(t, err, ErrTooSmall)
}

func TestMakeSplitExtremeRatioKeepsBothNonEmpty(t *testing.T) {
	split, err := MakeSplit(mkSamples(3), 0.99, DefaultSeed)
	require.NoError(t, err)
	require.NotEmpty(t, split.Train)
	require.NotEmpty(t, split.Test)
}

func TestPaths(t *testing.T) {
	train, test := Paths("out/training_dataset.json")
	require.Equal(t, filepath.Join("out", "training_dataset.json"), train)
	require.Equal(t, filepath.Join("out", "test_dataset.json"), test)

	train, _ = Paths("out/run1")
	require.Equal(t, filepath.Join("out", "run1.json"), train)
}

func TestPersistWritesBothSplits(t *testing.T) {
	dir := t.TempDir()
	split, err := MakeSplit(mkSamples(10), 0.9, DefaultSeed)
	require.NoError(t, err)

	trainPath := filepath.Join(dir, "training_dataset.json")
	testPath := filepath.Join(dir, "test_dataset.json")
	require.NoError(t, Persist(split, trainPath, testPath))

	var train, test []types.Sample
	require.NoError(t, safeio.ReadJSON(trainPath, &train))
	require.NoError(t, safeio.ReadJSON(testPath, &test))
	require.Equal(t, split.Train, train)
	require.Equal(t, split.Test, test)
}
