package provider

import (
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/subtitlepipe/core/internal/apierr"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, apierr.ErrRateLimit},
		{"quota via 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "quota exceeded"}, apierr.ErrInsufficientCredits},
		{"payment required", &openai.APIError{HTTPStatusCode: http.StatusPaymentRequired, Message: "pay up"}, apierr.ErrInsufficientCredits},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, apierr.ErrAuthFailed},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "down"}, apierr.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("classifyError(%v) = %v, want wrapping %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	if !isRetryableError(apierr.ErrRateLimit) {
		t.Fatal("rate limit should be retryable")
	}
	if isRetryableError(apierr.ErrAuthFailed) {
		t.Fatal("auth failure should not be retryable")
	}
	if isRetryableError(apierr.ErrInsufficientCredits) {
		t.Fatal("insufficient credits should not be retryable")
	}
}
