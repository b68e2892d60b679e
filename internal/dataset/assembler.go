// Package dataset owns the final collection: deterministic shuffle,
// train/test partitioning and persistence of both splits.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"moxigen/internal/safeio"
	"moxigen/internal/types"
)

// MinSplitSize is the smallest dataset that still yields two usable
// partitions.
const MinSplitSize = 2

const DefaultSeed = 42

var ErrTooSmall = errors.New("dataset: too few samples to split")

// Split is an immutable train/test partition of a sample set.
type Split struct {
	Train []types.Sample
	Test  []types.Sample
}

// MakeSplit shuffles samples with the given seed and partitions them at
// trainRatio (e.g. 0.9). The two partitions are disjoint and their union is
// the input set. Fewer than MinSplitSize samples is an error the caller
// reports, not a crash.
func MakeSplit(samples []types.Sample, trainRatio float64, seed int64) (Split, error) {
	if len(samples) < MinSplitSize {
		return Split{}, fmt.Errorf("%w: got %d, need at least %d", ErrTooSmall, len(samples), MinSplitSize)
	}
	if trainRatio <= 0 || trainRatio >= 1 {
		trainRatio = 0.9
	}

	shuffled := make([]types.Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain := int(float64(len(shuffled)) * trainRatio)
	// Both partitions stay non-empty even at extreme ratios.
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain >= len(shuffled) {
		nTrain = len(shuffled) - 1
	}
	return Split{Train: shuffled[:nTrain], Test: shuffled[nTrain:]}, nil
}

// Paths derives the train/test artifact paths from the configured output.
// "out/training_dataset.json" becomes "out/training_dataset.json" and
// "out/test_dataset.json".
func Paths(output string) (train, test string) {
	dir := filepath.Dir(output)
	base := filepath.Base(output)
	if !strings.HasSuffix(base, ".json") {
		base += ".json"
	}
	return filepath.Join(dir, base), filepath.Join(dir, "test_dataset.json")
}

// Persist writes both partitions atomically. An empty testPath skips the
// test file (used when the set was too small to split).
func Persist(s Split, trainPath, testPath string) error {
	if err := safeio.WriteJSON(trainPath, s.Train); err != nil {
		return fmt.Errorf("dataset: write train split: %w", err)
	}
	if testPath == "" {
		return nil
	}
	if err := safeio.WriteJSON(testPath, s.Test); err != nil {
		return fmt.Errorf("dataset: write test split: %w", err)
	}
	return nil
}
