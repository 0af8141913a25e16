// Package realtime wires the "realtime" subcommand: it boots the full
// audio ingestion pipeline (database pool, pitch model pre-warm, onset
// service health check, orchestrator tick loop, WebSocket listener) and
// blocks until interrupted.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diamondadamsteven/violin-engine/internal/aligner"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/onset"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/pitchb"
	"github.com/diamondadamsteven/violin-engine/internal/conf"
	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/finalizer"
	"github.com/diamondadamsteven/violin-engine/internal/intake"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/metalog"
	"github.com/diamondadamsteven/violin-engine/internal/orchestrator"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

var pitchModelPath string
var listenAddr string

// Command creates the "realtime" subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the real-time audio ingestion and analysis server",
		Long:  "Start accepting client recordings over WebSocket and analyzing them in real time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().StringVar(&pitchModelPath, "pitch-model", viper.GetString("realtime.pitchmodel"), "Path to the Pitch-B TFLite model file")
	cmd.Flags().StringVar(&listenAddr, "listen", viper.GetString("realtime.listen"), "Address to listen on for client WebSocket connections")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

// run executes the process boot sequence (spec.md §6 "Process entry"):
// open the DB pool, load and pre-warm the neural pitch model,
// health-check the note-detection microservice, start the tick loop,
// then open the client listening endpoint. It does not start the
// note-detection service, only checks whether it responds, and it has no
// resampler pre-warm step.
func run(ctx context.Context, settings *conf.Settings) error {
	addr := listenAddr
	if addr == "" {
		addr = ":8080"
	}

	ds, err := datastore.Open(settings)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer ds.Close()

	store := state.New()
	alignerMgr := aligner.NewManager(settings.BytesPerFrame(), settings.SamplesPerFrame(), settings.Audio.BytesPerSample, settings.Audio.SampleRate)

	var pitchModel *pitchb.Model
	if pitchModelPath != "" {
		pitchModel, err = pitchb.Load(pitchModelPath)
		if err != nil {
			return fmt.Errorf("loading pitch model: %w", err)
		}
		if err := pitchModel.PreWarm(); err != nil {
			return fmt.Errorf("pre-warming pitch model: %w", err)
		}
	} else {
		logging.Warn("realtime: no --pitch-model configured, Pitch-B analyzer disabled")
	}

	onsetBaseURL := fmt.Sprintf("http://%s:%d", settings.NoteService.Host, settings.NoteService.Port)
	onsetClient := onset.New(onsetBaseURL)
	defer onsetClient.Close()

	healthCtx, cancel := context.WithTimeout(ctx, settings.NoteService.Timeout)
	if onsetClient.Healthy(healthCtx) {
		logging.Info("realtime: note-detection microservice is healthy", "url", onsetBaseURL)
	} else {
		logging.Warn("realtime: note-detection microservice did not respond to health check, onset rows will downgrade to zero", "url", onsetBaseURL)
	}
	cancel()

	stepLogger := metalog.New(ds, metalog.DefaultBufferSize, metalog.DefaultBatchSize, metalog.DefaultFlushInterval)
	defer stepLogger.Shutdown()

	fin := finalizer.New(ds, store, settings.WorkDir)

	orch := orchestrator.New(store, ds, settings, alignerMgr, onsetClient, pitchModel, stepLogger, fin)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go orch.Run(runCtx)
	defer orch.Stop()

	e := echo.New()
	e.HideBanner = true
	intakeMgr := intake.NewManager(store)
	intakeMgr.RegisterRoutes(e)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	logging.Info("realtime: listening for client connections", "addr", addr)

	select {
	case <-runCtx.Done():
		logging.Info("realtime: shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("websocket listener failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return e.Shutdown(shutdownCtx)
}
