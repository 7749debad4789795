package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirelens/interview-pulse/internal/analysis"
	"github.com/hirelens/interview-pulse/internal/config"
	"github.com/hirelens/interview-pulse/internal/gdrive"
	"github.com/hirelens/interview-pulse/internal/logging"
	"github.com/hirelens/interview-pulse/internal/server"
	"github.com/hirelens/interview-pulse/internal/session"
	"github.com/hirelens/interview-pulse/internal/storage"
	"github.com/hirelens/interview-pulse/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)
	for _, w := range warnings {
		log.Warn(w)
	}

	log.Info("interview-pulse starting", "addr", cfg.ListenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	archive, err := storage.NewSQLiteArchive(cfg.DBPath)
	if err != nil {
		log.Error("archive init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = archive.Close() }()

	var snapshots session.SnapshotStore
	if cfg.ValkeyAddr != "" {
		vk, err := storage.NewValkeySnapshots(ctx, storage.ValkeyOptions{
			Address:  cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
		})
		if err != nil {
			log.Warn("valkey unavailable, snapshots kept in memory only", "error", err)
		} else {
			snapshots = vk
			defer vk.Close()
		}
	}

	var transcriber session.Transcriber
	switch cfg.Transcriber {
	case "deepgram":
		if cfg.DeepgramAPIKey != "" {
			transcriber = transcribe.NewDeepgram(cfg.DeepgramAPIKey, "nova-2")
		}
	default:
		if cfg.OpenAIAPIKey != "" {
			transcriber = transcribe.NewWhisper(cfg.OpenAIAPIKey, cfg.WhisperModel)
		}
	}
	if transcriber == nil {
		log.Warn("no transcriber configured, audio chunks will be rejected")
	}

	var emotions analysis.EmotionModel
	if cfg.OpenAIAPIKey != "" {
		emotions = analysis.NewEmotionClassifier(cfg.OpenAIAPIKey, cfg.EmotionModel)
	} else {
		log.Warn("emotion model not configured, emotion scores default to empty")
	}
	analyzer := analysis.NewAnalyzer(analysis.NewVaderModel(), emotions, log)

	hub := server.NewHub(log)

	registry := session.NewRegistry(session.Config{
		Weights:      cfg.Weights,
		FlushSeconds: cfg.FlushSeconds,
		SampleRate:   cfg.SampleRate,
		TrendWindow:  cfg.TrendWindow,
		QueueSize:    cfg.QueueSize,
		ActiveTTL:    cfg.ParsedActiveTTL(),
		CompletedTTL: cfg.ParsedCompletedTTL(),
		IdleTimeout:  cfg.ParsedIdleTimeout(),
	}, analyzer, transcriber, snapshots, archive, hub, log)

	if cfg.GDriveFolderID != "" {
		syncer, err := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			log.Warn("gdrive sync disabled", "error", err)
		} else {
			go runDriveSync(ctx, syncer, archive, log)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(ctx, cfg.ListenAddr, hub, registry, archive, log)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info("shutting down", "signal", s.String())
	case err := <-serverErr:
		log.Error("http server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	registry.Shutdown(shutdownCtx)
	cancel()

	select {
	case <-serverErr:
	case <-shutdownCtx.Done():
	}

	log.Info("interview-pulse stopped")
}

type dailyReport struct {
	Date     string                    `json:"date"`
	Sessions []storage.ArchivedSession `json:"sessions"`
}

func runDriveSync(ctx context.Context, syncer *gdrive.Syncer, archive *storage.SQLiteArchive, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			date := time.Now().UTC().Format("2006-01-02")
			sessions, err := archive.GetSessionsByDate(date)
			if err != nil {
				log.Warn("gdrive sync skipped", "error", err)
				continue
			}
			if len(sessions) == 0 {
				continue
			}

			payload, err := json.Marshal(dailyReport{Date: date, Sessions: sessions})
			if err != nil {
				log.Warn("gdrive report encode failed", "error", err)
				continue
			}
			if err := syncer.SyncReport(date, payload); err != nil {
				log.Warn("gdrive sync failed", "error", err)
			}
		}
	}
}
