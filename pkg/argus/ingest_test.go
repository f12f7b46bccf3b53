package argus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/argus/pkg/docstore"
	"github.com/randalmurphal/argus/pkg/llm"
	"github.com/randalmurphal/argus/pkg/search"
)

// rejectingStore reports every upload as failed processing.
type rejectingStore struct {
	*docstore.MemoryStore
}

func (rejectingStore) Poll(context.Context, string) (docstore.Status, error) {
	return docstore.StatusFailed, nil
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"deck.pdf":  llm.MediaTypePDF,
		"DECK.PDF":  llm.MediaTypePDF,
		"deck":      llm.MediaTypePDF,
		"notes.txt": llm.MediaTypeText,
		"NOTES.MD":  llm.MediaTypeText,
		"data.json": "application/json",
	}
	for path, want := range tests {
		assert.Equal(t, want, ContentType(path), path)
	}
}

func TestIngest(t *testing.T) {
	store := docstore.NewMemoryStore(docstore.WithPendingPolls(2))
	path := writeFile(t, "deck.pdf", "%PDF-1.4 fake")

	doc, err := Ingest(context.Background(), store, path, time.Millisecond)
	require.NoError(t, err)
	assert.Contains(t, doc.Ref, "deck.pdf")
	assert.Equal(t, llm.MediaTypePDF, doc.MediaType)

	ct, ok := store.ContentType(doc.Ref)
	require.True(t, ok)
	assert.Equal(t, llm.MediaTypePDF, ct)

	data, err := store.Fetch(context.Background(), doc.Ref)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestIngest_MissingFile(t *testing.T) {
	_, err := Ingest(context.Background(), docstore.NewMemoryStore(), filepath.Join(t.TempDir(), "nope.pdf"), 0)
	assert.ErrorContains(t, err, "read document")
}

func TestAnalyze(t *testing.T) {
	s := offlineSettings()
	client := newScriptedLLM()
	store := docstore.NewMemoryStore(docstore.WithPendingPolls(1))
	rt := &Runtime{Store: store, LLM: client, Search: search.NewMockClient()}
	p := newTestPipeline(t, client, rt.Search)

	state, err := Analyze(context.Background(), rt, p, s, writeFile(t, "deck.pdf", "pdf"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, testMemo, state.Artifact.Text)
	assert.Equal(t, 1, store.Len())

	calls := client.callsFor(StageExtractor)
	require.Len(t, calls, 1)
	assert.Equal(t, state.DocumentRef, calls[0].Messages[0].Documents()[0].Ref)
}

func TestAnalyze_TextDocumentKeepsMediaType(t *testing.T) {
	s := offlineSettings()
	client := newScriptedLLM()
	store := docstore.NewMemoryStore()
	rt := &Runtime{Store: store, LLM: client, Search: search.NewMockClient()}
	p := newTestPipeline(t, client, rt.Search)

	state, err := Analyze(context.Background(), rt, p, s, writeFile(t, "deck.txt", "Acme raises a seed round."), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, llm.MediaTypeText, state.MediaType)

	stored, ok := store.ContentType(state.DocumentRef)
	require.True(t, ok)
	assert.Equal(t, llm.MediaTypeText, stored)

	for _, stage := range []string{StageExtractor, StageValidator} {
		calls := client.callsFor(stage)
		require.Len(t, calls, 1, stage)
		assert.Equal(t, []llm.DocumentRef{{Ref: state.DocumentRef, MediaType: llm.MediaTypeText}},
			calls[0].Messages[0].Documents(), stage)
	}
}

func TestAnalyze_DeletesDocument(t *testing.T) {
	s := offlineSettings()
	s.KeepDocument = false
	client := newScriptedLLM()
	store := docstore.NewMemoryStore()
	rt := &Runtime{Store: store, LLM: client}
	p := newTestPipeline(t, client, nil)

	_, err := Analyze(context.Background(), rt, p, s, writeFile(t, "deck.pdf", "pdf"), discardLogger())
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestAnalyze_ProcessingFailureAbortsBeforeStages(t *testing.T) {
	s := offlineSettings()
	s.KeepDocument = false
	client := newScriptedLLM()
	mem := docstore.NewMemoryStore()
	rt := &Runtime{Store: rejectingStore{mem}, LLM: client}
	p := newTestPipeline(t, client, nil)

	_, err := Analyze(context.Background(), rt, p, s, writeFile(t, "deck.pdf", "pdf"), discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrProcessingFailed)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageIngest, stageErr.Stage)
	assert.Zero(t, client.CallCount())
	assert.Zero(t, mem.Len())
}
