package config

import (
	"testing"

	"moxigen/internal/dataset"
	"moxigen/internal/tester"
	"moxigen/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	tester.NoErr(t, err)
	tester.Eq(t, cfg.BatchSize, 3)
	tester.Eq(t, cfg.MinLength, 1000)
	tester.Eq(t, cfg.MaxLength, 2000)
	tester.Eq(t, cfg.TrainSplit, 0.9)
	tester.Eq(t, cfg.Seed, int64(42))
	tester.Eq(t, cfg.Concurrency, 4)
	tester.Eq(t, cfg.Output, "data/sft/training_dataset.json")
}

func TestLoadFlagsOverride(t *testing.T) {
	cfg, err := Load([]string{
		"-chunks", "features.json",
		"-limit", "50",
		"-batch-size", "5",
		"-train-split", "0.8",
		"-provider", "fake",
	})
	tester.NoErr(t, err)
	tester.Eq(t, cfg.ChunksPath, "features.json")
	tester.Eq(t, cfg.Limit, 50)
	tester.Eq(t, cfg.BatchSize, 5)
	tester.Eq(t, cfg.TrainSplit, 0.8)
	tester.Eq(t, cfg.Provider, "fake")
}

// -train-split is the fraction kept for TRAINING: 0.8 means an 80/20
// train/test partition, never the inverse.
func TestTrainSplitIsTrainFraction(t *testing.T) {
	cfg, err := Load([]string{"-train-split", "0.8"})
	tester.NoErr(t, err)
	tester.Eq(t, cfg.TrainSplit, 0.8)

	split, err := dataset.MakeSplit(make([]types.Sample, 10), cfg.TrainSplit, cfg.Seed)
	tester.NoErr(t, err)
	tester.Eq(t, len(split.Train), 8)
	tester.Eq(t, len(split.Test), 2)
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	_, err := Load([]string{"-no-such-flag"})
	tester.True(t, err != nil)
}

func TestExportDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("DATASET_S3_ENDPOINT", "")
	cfg, err := Load(nil)
	tester.NoErr(t, err)
	tester.False(t, cfg.Export.Enabled)
}

func TestExportEnabledByEndpoint(t *testing.T) {
	t.Setenv("DATASET_S3_ENDPOINT", "minio.local:9000")
	t.Setenv("DATASET_S3_ACCESS_KEY", "ak")
	t.Setenv("DATASET_S3_SECRET_KEY", "sk")
	cfg, err := Load(nil)
	tester.NoErr(t, err)
	tester.True(t, cfg.Export.Enabled)
	tester.Eq(t, cfg.Export.Bucket, "moxigen-datasets")
	tester.Eq(t, cfg.Export.Region, "us-east-1")
}