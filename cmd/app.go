package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pdfsum/internal/bot"
	"pdfsum/internal/config"
	"pdfsum/internal/domain"
	"pdfsum/internal/extractor"
	"pdfsum/internal/pipeline"
	"pdfsum/internal/scheduler"
	"pdfsum/internal/summarizer"
	"pdfsum/internal/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

type app struct {
	cfg       config.Config
	extractor *extractor.Extractor
	pipeline  *pipeline.Pipeline
	log       *slog.Logger
}

func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	s, err := newSummarizer(cfg)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "Summarizer is initialized",
		"backend", cfg.SummarizerBackend,
		"model", cfg.SummarizerModel,
		"timeoutSeconds", cfg.SummarizerTimeout.Seconds(),
		"cacheSize", cfg.SummaryCacheSize)

	ext := extractor.New(cfg.ScratchDir, cfg.MaxUploadBytes, log)

	return &app{
		cfg:       cfg,
		extractor: ext,
		pipeline:  pipeline.New(ext, s, cfg.Instruction, log),
		log:       log,
	}, nil
}

func newSummarizer(cfg config.Config) (summarizer.Summarizer, error) {
	var s summarizer.Summarizer

	switch cfg.SummarizerBackend {
	case config.BackendOpenAI:
		openAI, err := summarizer.NewOpenAISummarizer(summarizer.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.SummarizerModel,
			Timeout: cfg.SummarizerTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create OpenAI summarizer: %w", err)
		}
		s = openAI
	default:
		s = summarizer.NewGenerateSummarizer(cfg.SummarizerURL, cfg.SummarizerModel, cfg.SummarizerTimeout)
	}

	return summarizer.NewCache(s, cfg.SummaryCacheSize, cfg.SummaryCacheTTL), nil
}

func runServe(ctx context.Context, addr string) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	log := a.log

	if addr = strings.TrimSpace(addr); addr == "" {
		addr = a.cfg.HTTPAddr
	}

	sched := scheduler.New(ctx, a.extractor, a.cfg.ScratchSweepSpec, a.cfg.ScratchMaxAge, log)
	if err = sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", a.cfg.ScratchSweepSpec,
		"scratchDir", a.extractor.ScratchDir(),
		"maxAgeSeconds", a.cfg.ScratchMaxAge.Seconds())

	if a.cfg.TelegramToken != "" {
		botInst, botErr := bot.New(
			a.cfg.TelegramToken,
			a.pipeline,
			a.extractor.MaxBytes(),
			a.cfg.SummarizerTimeout,
			a.cfg.AllowedUsers,
			log,
		)
		if botErr != nil {
			return fmt.Errorf("create bot: %w", botErr)
		}
		defer func() {
			botInst.Stop()
			log.InfoContext(ctx, "Bot is stopped",
				"uptimeSeconds", time.Since(start).Seconds())
		}()

		go botInst.Start(ctx)
		log.InfoContext(ctx, "Bot is started",
			"username", botInst.Username(),
			"allowedUsersCount", len(a.cfg.AllowedUsers),
			"updateTimeoutSeconds", bot.BotUpdateTimeout)
	} else {
		log.InfoContext(ctx, "TELEGRAM_TOKEN is empty so bot is disabled")
	}

	srv, err := web.New(a.pipeline, a.extractor.MaxBytes(), log)
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		if listenErr := httpServer.ListenAndServe(); !errors.Is(listenErr, http.ErrServerClosed) {
			serveErr <- listenErr
		}
		close(serveErr)
	}()
	log.InfoContext(ctx, "HTTP server is started",
		"addr", addr,
		"maxUploadBytes", a.extractor.MaxBytes())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-serveErr:
		if err != nil {
			// The bot loop must see cancellation before its deferred Stop runs.
			cancel()

			return fmt.Errorf("serve HTTP: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Failed to shut down HTTP server",
			"error", err)
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}

type cliResult struct {
	File        string `json:"file"`
	Summary     string `json:"summary"`
	Instruction string `json:"instruction"`
	Model       string `json:"model,omitempty"`
	Disclaimer  string `json:"disclaimer"`
	Pages       int    `json:"pages"`
}

func runSummarize(ctx context.Context, path string, asJSON bool, out io.Writer) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("missing PDF file argument")
	}

	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}

	upload, err := readUploadFile(path, a.extractor.MaxBytes())
	if err != nil {
		return err
	}

	summary, err := a.pipeline.Run(ctx, upload)
	if err != nil {
		return fmt.Errorf("%s: %w", pipeline.UserMessage(err), err)
	}

	return writeSummary(out, upload.Name, summary, asJSON)
}

func readUploadFile(path string, maxBytes int64) (domain.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("stat %q: %w", path, err)
	}

	if info.Size() > maxBytes {
		return domain.Upload{}, fmt.Errorf("%w (size = %d, limit = %d)", extractor.ErrTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read %q: %w", path, err)
	}

	return domain.Upload{Name: filepath.Base(path), Data: data}, nil
}

func writeSummary(out io.Writer, fileName string, summary domain.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(cliResult{
			File:        fileName,
			Summary:     summary.Text,
			Instruction: summary.Instruction,
			Model:       summary.Model,
			Disclaimer:  summary.Disclaimer,
			Pages:       summary.Pages,
		}); err != nil {
			return fmt.Errorf("write JSON result: %w", err)
		}

		return nil
	}

	_, err := fmt.Fprintf(out, "%s\n\nAI Summarization:\n\n%s\n\n⚠️ Important Note: %s\n",
		summary.Instruction, summary.Text, summary.Disclaimer)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}
