package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/subtitlepipe/core/internal/apierr"
)

// DelayTimeout bounds how long a stream may go without producing a chunk
// before the watchdog aborts it (spec §4.4, default 60s).
const DelayTimeout = 60 * time.Second

// Message is a single chat turn.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CompleteOptions configures a CompleteText/Review/StreamComplete call.
type CompleteOptions struct {
	Model          string
	Temperature    float32
	TopP           float32
	Tier           Tier
	IdempotencyKey string
}

func (c *Client) toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// CompleteText performs a non-streaming chat completion (spec §4.4).
func (c *Client) CompleteText(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	tier := opts.Tier
	if tier == "" {
		tier = TierPrimaryRemote
	}
	cl, err := c.clientFor(tier)
	if err != nil {
		return "", err
	}
	if opts.IdempotencyKey != "" {
		ctx = WithIdempotencyKey(ctx, opts.IdempotencyKey)
	}

	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    c.toOpenAIMessages(messages),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}

	resp, err := apierr.RetryWithBackoff(ctx, c.retryConfig, func() (openai.ChatCompletionResponse, error) {
		r, err := cl.CreateChatCompletion(ctx, req)
		if err != nil {
			return openai.ChatCompletionResponse{}, classifyError(err)
		}
		return r, nil
	}, isRetryableError)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", apierr.ErrProviderUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// Review revises a batch using the same completion mechanism as
// CompleteText; it is named separately because spec §4.4 lists review as
// its own ProviderClient capability, used by the optional review pass
// (spec §4.6).
func (c *Client) Review(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	return c.CompleteText(ctx, messages, opts)
}

// StreamChunk is one incremental piece of a streamed completion.
type StreamChunk struct {
	Text string
	Err  error
}

// StreamComplete yields incremental text chunks over the returned channel,
// closing it when the stream ends, the context is canceled, or the stall
// watchdog fires with no chunk for DelayTimeout (spec §4.4).
func (c *Client) StreamComplete(ctx context.Context, messages []Message, opts CompleteOptions) (<-chan StreamChunk, error) {
	tier := opts.Tier
	if tier == "" {
		tier = TierPrimaryRemote
	}
	cl, err := c.clientFor(tier)
	if err != nil {
		return nil, err
	}
	if opts.IdempotencyKey != "" {
		ctx = WithIdempotencyKey(ctx, opts.IdempotencyKey)
	}

	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    c.toOpenAIMessages(messages),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stream:      true,
	}

	stream, err := cl.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			type recvResult struct {
				resp openai.ChatCompletionStreamResponse
				err  error
			}
			received := make(chan recvResult, 1)
			go func() {
				resp, err := stream.Recv()
				received <- recvResult{resp, err}
			}()

			select {
			case <-ctx.Done():
				out <- StreamChunk{Err: ctx.Err()}
				return
			case <-time.After(DelayTimeout):
				out <- StreamChunk{Err: fmt.Errorf("%w: no chunk within %v", apierr.ErrTimeout, DelayTimeout)}
				return
			case r := <-received:
				if r.err != nil {
					if errors.Is(r.err, context.Canceled) || errors.Is(r.err, io.EOF) {
						return
					}
					out <- StreamChunk{Err: classifyError(r.err)}
					return
				}
				if len(r.resp.Choices) > 0 {
					out <- StreamChunk{Text: r.resp.Choices[0].Delta.Content}
				}
			}
		}
	}()

	return out, nil
}
