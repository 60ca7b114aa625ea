package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"historymaker/internal/api"
	"historymaker/internal/audio"
	"historymaker/internal/clips"
	"historymaker/internal/export"
	"historymaker/internal/imagesearch"
	"historymaker/internal/llm"
	"historymaker/internal/music"
	"historymaker/internal/planner"
	"historymaker/internal/script"
	"historymaker/internal/store"
	"historymaker/internal/visuals"
	"historymaker/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	gateway, err := llm.NewGroqGateway(cfg.GroqAPIKey, llm.TierModels{
		Fast:     cfg.Gateway.FastModel,
		Balanced: cfg.Gateway.BalancedModel,
		Best:     cfg.Gateway.BestModel,
	})
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	st := store.NewMemoryStore()

	clipSvc := clips.NewService(st, clips.Config{
		Model:          cfg.Clips.Model,
		QualityModel:   cfg.Clips.QualityModel,
		PollInterval:   time.Duration(cfg.Clips.PollSeconds) * time.Second,
		PollTimeout:    time.Duration(cfg.Clips.PollTimeoutMin) * time.Minute,
		PollRatePerSec: cfg.Clips.PollRatePerSec,
		BatchDelay:     time.Duration(cfg.Clips.BatchDelayMillis) * time.Millisecond,
	})

	server := api.NewServer(api.Services{
		Store:   st,
		Planner: planner.NewService(gateway, st),
		Scripts: script.NewService(gateway, st),
		Wiki:    script.NewWikipediaClient(),
		Audio: audio.NewService(gateway, st, audio.Config{
			ModelID:      cfg.TTS.Model,
			OutputFormat: cfg.TTS.OutputFormat,
			MaxChunkSize: cfg.TTS.MaxChunkSize,
		}),
		Visuals: visuals.NewService(gateway, st, imagesearch.NewClient(), visuals.Config{
			WordsPerMinute:   cfg.Visuals.WordsPerMinute,
			SecondsPerVisual: cfg.Visuals.SecondsPerVisual,
		}),
		Clips:   clipSvc,
		Music:   music.NewService(gateway, st),
		Exports: export.NewService(st),
	}, cfg.Server.AllowedOrigins, slog.Default())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		slog.Info("Shutting down...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Let in-flight clip polls write their terminal state.
	clipSvc.Wait()
	return nil
}
