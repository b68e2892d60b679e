// sftgen assembles a supervised fine-tuning dataset from crawled repository
// READMEs: it chunks them, asks a generation service for one instruction per
// chunk, filters the result and writes train/test splits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"moxigen/internal/config"
	"moxigen/internal/llm"
	"moxigen/internal/llmclient"
	"moxigen/internal/pipeline"
	"moxigen/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		log.Printf("sftgen: init provider: %v", err)
		return 1
	}
	defer client.Close()

	var src store.Source
	if cfg.ChunksPath == "" {
		src, err = store.NewSourceFromEnv(ctx, cfg.InputPath)
		if err != nil {
			log.Printf("sftgen: open input: %v", err)
			return 1
		}
		defer src.Close()
	}

	runner := &pipeline.Runner{Cfg: cfg, Client: client, Source: src, Progress: true}
	report, runErr := runner.Run(ctx)

	// The report is printed even on partial failure.
	if b, err := json.MarshalIndent(report, "", "  "); err == nil {
		fmt.Println(string(b))
	}
	if runErr != nil {
		log.Printf("sftgen: %v", runErr)
		return 1
	}
	log.Printf("sftgen: wrote %d train / %d test samples to %s",
		report.TrainSamples, report.TestSamples, report.TrainPath)
	return 0
}

func buildClient(ctx context.Context, cfg *config.Config) (llmclient.Client, error) {
	var (
		inner llmclient.Client
		err   error
	)
	switch {
	case cfg.DryRun || cfg.Provider == "fake":
		inner = llm.NewFakeClient()
	case cfg.Provider == "groq":
		inner, err = llmclient.NewGroqClient("", cfg.Model)
	case cfg.Provider == "gemini":
		inner, err = llmclient.NewGeminiClient(ctx, cfg.Model)
	default:
		err = errors.New("unknown provider " + cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.Wrap(inner,
		llm.WithLogging(nil),
		llm.WithCache(256),
		llm.RateLimit(cfg.RPS, cfg.Burst),
	), nil
}
