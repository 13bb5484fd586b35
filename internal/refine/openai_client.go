package refine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"

	"emailhub/pkg/circuitbreaker"
	"emailhub/pkg/metrics"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.3)

	systemPrompt = "You refine marketing emails to reduce spamminess while preserving meaning. " +
		"Replace spammy phrases with neutral language. " +
		"Return strictly JSON with keys subject and body, no commentary."
	userPromptFormat = "Subject: %s\n\nBody:\n%s\n\nReturn strictly JSON: {\"subject\":\"...\",\"body\":\"...\"}"

	completionsEndpoint = "/chat/completions"
)

type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
}

// OpenAIClient implements Completer with the chat completions API behind a circuit breaker.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	cb          *circuitbreaker.CircuitBreaker
}

func NewOpenAIClient(cfg OpenAIConfig, cb *circuitbreaker.CircuitBreaker) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cb == nil {
		cbCfg := circuitbreaker.DefaultConfig()
		cbCfg.FailureThreshold = 3
		cbCfg.HalfOpenMaxRequests = 2
		cb = circuitbreaker.NewCircuitBreaker(cbCfg)
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		cb:          cb,
	}
}

// Complete returns the content of the first choice, or "" when the response has none.
func (c *OpenAIClient) Complete(ctx context.Context, d Draft) (string, error) {
	var content string

	err := c.cb.Execute(func() error {
		start := time.Now()
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptFormat, d.Subject, d.Body)},
			},
		})
		metrics.RecordRemoteCallLatency(completionsEndpoint, callStatus(err), time.Since(start))
		if err != nil {
			return fmt.Errorf("openai chat completion: %w", err)
		}

		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func callStatus(err error) string {
	if err == nil {
		return "success"
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return strconv.Itoa(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return strconv.Itoa(reqErr.HTTPStatusCode)
	}
	return "error"
}
