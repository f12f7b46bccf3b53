package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/argus/pkg/llm"
)

func userText(text string) []llm.Message {
	return []llm.Message{llm.UserMessage(llm.TextPart(text))}
}

func TestMockClient_FixedResponse(t *testing.T) {
	mock := llm.NewMockClient("Hello, world!")

	resp, err := mock.Complete(context.Background(), llm.CompletionRequest{Messages: userText("Hi")})

	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
}

func TestMockClient_SequentialResponses(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("first", "second", "third")

	for _, want := range []string{"first", "second", "third", "first"} {
		resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

func TestMockClient_WithError(t *testing.T) {
	expectedErr := errors.New("test error")
	mock := llm.NewMockClient("").WithError(expectedErr)

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{})

	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestMockClient_CallTracking(t *testing.T) {
	mock := llm.NewMockClient("response")

	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{Messages: userText("First question")})
	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{Messages: userText("Second question")})

	assert.Equal(t, 2, mock.CallCount())
	require.Len(t, mock.Calls, 2)
	assert.Equal(t, "First question", mock.Calls[0].Messages[0].Text())
	assert.Equal(t, "Second question", mock.Calls[1].Messages[0].Text())
}

func TestMockClient_LastCall(t *testing.T) {
	mock := llm.NewMockClient("response")
	assert.Nil(t, mock.LastCall())

	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{Messages: userText("Hello")})

	lastCall := mock.LastCall()
	require.NotNil(t, lastCall)
	assert.Equal(t, "Hello", lastCall.Messages[0].Text())
}

func TestMockClient_Reset(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("a", "b", "c")

	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{})
	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{})
	mock.Reset()

	assert.Equal(t, 0, mock.CallCount())
	assert.Empty(t, mock.Calls)

	resp, _ := mock.Complete(context.Background(), llm.CompletionRequest{})
	assert.Equal(t, "a", resp.Content)
}

func TestMockClient_CustomCompleteFunc(t *testing.T) {
	mock := llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Echo: " + req.Messages[0].Text()}, nil
	})

	resp, err := mock.Complete(context.Background(), llm.CompletionRequest{Messages: userText("test")})

	require.NoError(t, err)
	assert.Equal(t, "Echo: test", resp.Content)
}

func TestMockClient_ContextCancellation(t *testing.T) {
	mock := llm.NewMockClient("response")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Complete(ctx, llm.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockClient_TokenUsage(t *testing.T) {
	mock := llm.NewMockClient("some response text")

	resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)

	assert.Greater(t, resp.Usage.InputTokens, 0)
	assert.Greater(t, resp.Usage.OutputTokens, 0)
	assert.Equal(t, resp.Usage.InputTokens+resp.Usage.OutputTokens, resp.Usage.TotalTokens)
}

func TestMockClient_ConcurrentUse(t *testing.T) {
	mock := llm.NewMockClient("ok")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Complete(context.Background(), llm.CompletionRequest{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, mock.CallCount())
}

func TestMessage_Accessors(t *testing.T) {
	msg := llm.UserMessage(
		llm.TextPart("Analyze "),
		llm.DocumentPart("s3://bucket/deck.pdf", llm.MediaTypePDF),
		llm.TextPart("carefully."),
	)

	assert.Equal(t, llm.RoleUser, msg.Role)
	assert.Equal(t, "Analyze carefully.", msg.Text())
	assert.Equal(t, []llm.DocumentRef{{Ref: "s3://bucket/deck.pdf", MediaType: llm.MediaTypePDF}}, msg.Documents())

	reply := llm.AssistantMessage("done")
	assert.Equal(t, llm.RoleAssistant, reply.Role)
	assert.Empty(t, reply.Documents())
}

func TestTokenUsage_Add(t *testing.T) {
	u := llm.TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	u.Add(llm.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})

	assert.Equal(t, llm.TokenUsage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, u)
}
