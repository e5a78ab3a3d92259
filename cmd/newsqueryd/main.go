// Command newsqueryd serves the query engine's HTTP surface: /search,
// /search-videos, and /healthz, over the indices and metadata loaded
// once at startup from -data-dir.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-kit/log/level"

	"github.com/tvnews/newsquery/internal/caption"
	"github.com/tvnews/newsquery/internal/config"
	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/httpapi"
	"github.com/tvnews/newsquery/internal/logutil"
	"github.com/tvnews/newsquery/internal/transcript"
)

func main() {
	cfg := config.Default()
	if err := config.LoadYAML(configFlagValue(os.Args[1:]), &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.String("config", "", "optional YAML config file")
	config.RegisterFlags(flag.CommandLine, &cfg)
	flag.Parse()

	logger := logutil.New(cfg.LogLevel)

	data, err := datacontext.Load(datacontext.Config{
		DataDir:                    cfg.DataDir,
		MinPersonScreenTimeSeconds: cfg.PeopleMinScreenTimeSeconds,
	}, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load data context", "err", err)
		os.Exit(1)
	}

	var idx transcript.Index
	if cfg.CaptionIndexAddr != "" {
		idx = caption.NewClient(cfg.CaptionIndexAddr)
	}

	server := httpapi.NewServer(data, idx, logger, cfg.MaxVideoSearchIDs)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		level.Info(logger).Log("msg", "shutting down server")
		if err := httpServer.Close(); err != nil {
			level.Error(logger).Log("msg", "error during shutdown", "err", err)
		}
		close(done)
	}()

	level.Info(logger).Log("msg", "server listening", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(logger).Log("msg", "server error", "err", err)
		os.Exit(1)
	}

	<-done
	level.Info(logger).Log("msg", "server stopped")
}

func configFlagValue(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config=") || strings.HasPrefix(a, "--config="):
			return a[strings.Index(a, "=")+1:]
		}
	}
	return ""
}
