package argus

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/randalmurphal/argus/pkg/docstore"
	"github.com/randalmurphal/argus/pkg/flowgraph"
	"github.com/randalmurphal/argus/pkg/llm"
)

// ContentType guesses a document's media type from its file name,
// defaulting to PDF.
func ContentType(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "", ".pdf":
		return llm.MediaTypePDF
	case ".txt", ".md", ".markdown":
		return llm.MediaTypeText
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			if base, _, err := mime.ParseMediaType(t); err == nil {
				return base
			}
		}
		return llm.MediaTypePDF
	}
}

// Ingest uploads the file at path and waits until the store reports it
// ready. A document the store failed to process aborts with
// docstore.ErrProcessingFailed.
func Ingest(ctx context.Context, store docstore.Store, path string, interval time.Duration) (Document, error) {
	doc := Document{MediaType: ContentType(path)}
	ref, err := docstore.UploadFile(ctx, store, path, doc.MediaType, interval)
	doc.Ref = ref
	if err != nil {
		return doc, fmt.Errorf("ingest %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Analyze ingests the document at path, runs the pipeline on it and
// optionally deletes the stored copy afterwards. opts apply to this run only.
func Analyze(ctx context.Context, rt *Runtime, p *Pipeline, s Settings, path string, logger *slog.Logger, opts ...flowgraph.RunOption) (RunState, error) {
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := Ingest(ctx, rt.Store, path, s.PollInterval)
	if doc.Ref != "" && !s.KeepDocument {
		defer func() {
			if derr := rt.Store.Delete(context.WithoutCancel(ctx), doc.Ref); derr != nil {
				logger.Warn("failed to delete stored document", "ref", doc.Ref, "error", derr)
			}
		}()
	}
	if err != nil {
		return RunState{}, &StageError{Stage: StageIngest, Err: err}
	}
	logger.Info("document ready", "ref", doc.Ref, "media_type", doc.MediaType)

	return p.ExecuteDocument(ctx, doc, opts...)
}
