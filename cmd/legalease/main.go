package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csheth/legalease/internal/config"
	"github.com/csheth/legalease/internal/llm"
	"github.com/csheth/legalease/internal/session"
	"github.com/csheth/legalease/internal/tui"
)

func main() {
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	debugLog := flag.String("debug-log", "", "append diagnostic logs to this file")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (eg. 127.0.0.1:9464)")
	llmModel := flag.String("llm-model", "", "override the configured Gemini model")
	llmEndpoint := flag.String("llm-endpoint", "", "override the Gemini API base URL")
	exportDir := flag.String("export-dir", "", "directory for exported transcripts")
	language := flag.String("language", "", "initial output language (eg. Hindi)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	applyFlags(&cfg, *llmModel, *llmEndpoint, *exportDir, *language)

	if *debugLog != "" {
		f, err := tea.LogToFile(*debugLog, "legalease")
		if err != nil {
			fmt.Println("debug log:", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, registry)
	}

	var gateway llm.Sender
	backend := "offline"
	client, err := llm.New(llm.Config{
		Endpoint:          cfg.LLM.Endpoint,
		Model:             cfg.LLM.Model,
		APIKey:            cfg.LLM.ResolveAPIKey(),
		RequestTimeout:    cfg.LLM.RequestTimeout,
		Attempts:          cfg.Retry.Attempts,
		InitialBackoff:    cfg.Retry.InitialBackoff(),
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Registerer:        registry,
	})
	if err != nil {
		log.Printf("LLM disabled: %v", err)
	} else {
		gateway = client
		backend = client.Name()
	}

	orchestrator := session.New(gateway, session.Options{
		MaxDocumentBytes: cfg.Limits.MaxDocumentBytes,
		Languages:        cfg.UI.Languages,
		DefaultLanguage:  cfg.UI.DefaultLanguage,
		APIKeyEnv:        cfg.LLM.APIKeyEnv,
	})

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Session:       orchestrator,
			Online:        gateway != nil,
			APIKeyEnv:     cfg.LLM.APIKeyEnv,
			Backend:       backend,
			ExportDir:     cfg.UI.ExportDir,
			JobTimeout:    jobTimeout(cfg),
			MarkdownStyle: cfg.UI.MarkdownStyle,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, model, endpoint, exportDir, language string) {
	if model != "" {
		cfg.LLM.Model = model
	}
	if endpoint != "" {
		cfg.LLM.Endpoint = endpoint
	}
	if exportDir != "" {
		cfg.UI.ExportDir = exportDir
	}
	if language != "" {
		cfg.UI.DefaultLanguage = language
	}
}

// jobTimeout bounds one logical request: every attempt may wait one pacing
// interval and then run to the HTTP timeout, with backoff waits in between.
func jobTimeout(cfg config.Config) time.Duration {
	if cfg.LLM.RequestTimeout <= 0 {
		return 0
	}
	perAttempt := cfg.LLM.RequestTimeout
	if rpm := cfg.LLM.RequestsPerMinute; rpm > 0 {
		perAttempt += time.Minute / time.Duration(rpm)
	}
	total := time.Duration(cfg.Retry.Attempts) * perAttempt
	delay := cfg.Retry.InitialBackoff()
	if delay == 0 {
		delay = time.Second
	}
	for i := 1; i < cfg.Retry.Attempts; i++ {
		total += delay
		delay = time.Duration(float64(delay) * cfg.Retry.BackoffMultiplier)
	}
	return total + 10*time.Second
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[metrics] server stopped: %v", err)
	}
}
