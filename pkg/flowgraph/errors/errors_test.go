package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryPermanent},
		{"unknown", errors.New("boom"), CategoryPermanent},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), CategoryCanceled},
		{"deadline", context.DeadlineExceeded, CategoryTransient},
		{"wrapped http", fmt.Errorf("tavily: %w", &HTTPError{StatusCode: 503}), CategoryTransient},
		{"rate limit", &HTTPError{StatusCode: 429}, CategoryTransient},
		{"server error", &HTTPError{StatusCode: 502}, CategoryTransient},
		{"unauthorized", &HTTPError{StatusCode: 401}, CategoryPermanent},
		{"bad request", &HTTPError{StatusCode: 400}, CategoryInput},
		{"too large", &HTTPError{StatusCode: 413}, CategoryInput},
		{"json", &JSONParseError{Err: &json.SyntaxError{}}, CategoryInput},
		{"timeout", &TimeoutError{Operation: "poll", Duration: time.Minute}, CategoryTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("x")))
	assert.Equal(t, 75, ExitCode(&HTTPError{StatusCode: 503}))
	assert.Equal(t, 65, ExitCode(&JSONParseError{Err: errors.New("x")}))
	assert.Equal(t, 130, ExitCode(context.Canceled))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 429}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: 403}))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "HTTP 500 at /search: oops", (&HTTPError{StatusCode: 500, Message: "oops", Endpoint: "/search"}).Error())
	assert.Equal(t, "HTTP 404: gone", (&HTTPError{StatusCode: 404, Message: "gone"}).Error())
	assert.Equal(t, "timeout after 1m0s: wait for document", (&TimeoutError{Operation: "wait for document", Duration: time.Minute}).Error())

	cause := fmt.Errorf("node c: %w", context.DeadlineExceeded)
	timeout := &TimeoutError{Operation: "join at validate", Duration: time.Second, Err: cause}
	assert.Equal(t, "timeout after 1s: join at validate: node c: context deadline exceeded", timeout.Error())
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	inner := errors.New("unexpected end")
	assert.ErrorIs(t, &JSONParseError{Err: inner}, inner)
	assert.Equal(t, "canceled", CategoryCanceled.String())
	assert.Equal(t, "unknown", Category(99).String())
}
