package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"classmark/internal/admission"
	"classmark/internal/config"
	"classmark/internal/githost"
	"classmark/internal/queue"
	"classmark/internal/report"
	"classmark/internal/store"
)

// Worker consumes export jobs, builds the presence matrix CSV, and pushes it
// to the configured GitHub repository.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var jobs queue.Queue
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
	} else {
		jobs = queue.NewRedisQueue(redisClient.Client, "classmark:exports")
	}

	ledger := admission.NewRepository(db.Client)
	host := githost.New(cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch, cfg.GitHubToken)
	if !host.Configured() {
		log.Println("WARNING: GitHub not configured (GITHUB_TOKEN / GITHUB_USERNAME / GITHUB_REPO not set)")
		log.Println("Worker will fail export jobs until it is")
	}

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for export jobs...")
	for job := range messages {
		if err := runExport(ctx, ledger, host, job); err != nil {
			log.Printf("export for %s failed: %v", job.ClassName, err)
			continue
		}
		log.Printf("export for %s (%s) pushed", job.ClassName, job.Day)
	}

	log.Println("worker stopped")
}

func runExport(ctx context.Context, ledger *admission.Repository, host *githost.Client, job queue.ExportJob) error {
	if !host.Configured() {
		return fmt.Errorf("github not configured")
	}

	records, err := ledger.RecordsForClass(ctx, job.ClassName)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	matrix := report.Build(job.ClassName, records)
	data, err := matrix.CSV()
	if err != nil {
		return fmt.Errorf("render csv: %w", err)
	}

	path := fmt.Sprintf("records/attendance_matrix_%s_%s.csv",
		job.ClassName, strings.ReplaceAll(job.Day, "-", ""))
	message := fmt.Sprintf("Push matrix for %s", job.ClassName)

	created, err := host.PushFile(ctx, path, message, data)
	if err != nil {
		return err
	}
	if created {
		log.Printf("created new file: %s", path)
	} else {
		log.Printf("updated existing file: %s", path)
	}
	return nil
}
