package main

import (
	"flag"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/argus/pkg/argus"
)

// settingsFlags are the flags every command that loads settings accepts.
// Flags left at their zero value do not override loaded settings.
type settingsFlags struct {
	configFile string
	envFile    string

	offline        bool
	model          string
	store          string
	bucket         string
	failFast       bool
	maxConcurrency int
	deleteDocument bool
	snapshots      string
}

func (f *settingsFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configFile, "config", "", "YAML or JSON settings file")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file with credentials (ignored if missing)")
	fs.BoolVar(&f.offline, "offline", false, "use canned model and search responses and an in-memory store")
	fs.StringVar(&f.model, "model", "", "model name")
	fs.StringVar(&f.store, "store", "", "document store: s3 or memory")
	fs.StringVar(&f.bucket, "bucket", "", "S3 bucket for uploaded documents")
	fs.BoolVar(&f.failFast, "fail-fast", false, "cancel the other analysts as soon as one fails")
	fs.IntVar(&f.maxConcurrency, "max-concurrency", 0, "maximum analysts running at once (0 = all)")
	fs.BoolVar(&f.deleteDocument, "delete-document", false, "delete the uploaded document after the run")
	fs.StringVar(&f.snapshots, "snapshots", "", "SQLite database to record run history in")
}

// load reads settings from the configured sources and applies the flags.
func (f *settingsFlags) load(environ []string) (argus.Settings, error) {
	s, err := argus.LoadSettings(argus.Sources{
		File:    f.configFile,
		DotEnv:  f.envFile,
		Environ: environ,
	})
	if err != nil {
		return s, err
	}

	if f.offline {
		s.LLMProvider = argus.ProviderOffline
		s.SearchProvider = argus.ProviderOffline
		s.StoreProvider = argus.ProviderMemory
	}
	if f.model != "" {
		s.Model = f.model
	}
	if f.store != "" {
		s.StoreProvider = f.store
	}
	if f.bucket != "" {
		s.S3.Bucket = f.bucket
	}
	if f.failFast {
		s.FailFast = true
	}
	if f.maxConcurrency > 0 {
		s.MaxConcurrency = f.maxConcurrency
	}
	if f.deleteDocument {
		s.KeepDocument = false
	}
	if f.snapshots != "" {
		s.SnapshotPath = f.snapshots
	}
	return s, nil
}

// logFlags select the log handler.
type logFlags struct {
	format  string
	verbose bool
}

func (f *logFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.format, "log-format", "text", "log format: text or json")
	fs.BoolVar(&f.verbose, "verbose", false, "log debug messages")
}

func (f *logFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(f.format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
