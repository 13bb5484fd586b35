package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sashabaranov/go-openai"

	"emailhub/pkg/circuitbreaker"
)

// ClassifyError maps err to a short, low-cardinality label for metrics and logs.
func ClassifyError(err error) string {
	if err == nil {
		return "ok"
	}

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return "circuit_open"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return "not_found"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "json_decode_error"
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 {
			return "remote_5xx"
		}
		return "remote_4xx"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return "remote_5xx"
		}
		return "remote_4xx"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "network_timeout"
		}
		return "network_error"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "Duplicate entry") {
		return "duplicate_key"
	}
	if strings.Contains(errStr, "connection") {
		return "connection_error"
	}

	return "unknown_error"
}
