package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is everything one run needs. Flags take precedence over env vars,
// env vars over defaults; .env is loaded first so local runs work unchanged.
type Config struct {
	ChunksPath string
	InputPath  string
	Output     string

	Limit      int
	BatchSize  int
	MinLength  int
	MaxLength  int
	TrainSplit float64
	Seed       int64

	Concurrency int
	Provider    string
	Model       string
	DryRun      bool

	RPS   float64
	Burst int

	Export S3ExportConfig
}

// S3ExportConfig mirrors the artifact-store settings; export is enabled only
// when an endpoint is configured.
type S3ExportConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("sftgen", flag.ContinueOnError)
	cfg := &Config{}
	fs.StringVar(&cfg.ChunksPath, "chunks", "", "path to a pre-chunked features file (skips collection + chunking)")
	fs.StringVar(&cfg.InputPath, "input", "", "path to a collection JSON file (ignored when a DB source is configured)")
	fs.StringVar(&cfg.Output, "output", "data/sft/training_dataset.json", "train split output path")
	fs.IntVar(&cfg.Limit, "limit", 0, "max chunks to process (0 = no cap)")
	fs.IntVar(&cfg.BatchSize, "batch-size", 3, "chunks per generation request")
	fs.IntVar(&cfg.MinLength, "min-length", 1000, "min chunk length in characters")
	fs.IntVar(&cfg.MaxLength, "max-length", 2000, "max chunk length in characters")
	fs.Float64Var(&cfg.TrainSplit, "train-split", 0.9, "fraction of samples kept for training (rest = test)")
	fs.Int64Var(&cfg.Seed, "seed", 42, "shuffle seed for the train/test split")
	fs.IntVar(&cfg.Concurrency, "concurrency", 4, "max in-flight generation requests")
	fs.StringVar(&cfg.Provider, "provider", envOr("LLM_PROVIDER", "gemini"), "generation provider: gemini, groq or fake")
	fs.StringVar(&cfg.Model, "model", os.Getenv("LLM_MODEL"), "provider model id")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "use the offline fake provider")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.RPS = envFloat("LLM_RPS")
	cfg.Burst = envInt("LLM_BURST")
	cfg.Export = loadExportConfig()
	return cfg, nil
}

func loadExportConfig() S3ExportConfig {
	endpoint := strings.TrimSpace(os.Getenv("DATASET_S3_ENDPOINT"))
	return S3ExportConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DATASET_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DATASET_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DATASET_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("DATASET_S3_BUCKET")), "moxigen-datasets"),
		Prefix:    strings.Trim(strings.TrimSpace(os.Getenv("DATASET_S3_PREFIX")), "/"),
		UseSSL:    envBool("DATASET_S3_USE_SSL", true),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
