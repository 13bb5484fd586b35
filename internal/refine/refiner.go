// Package refine rewrites drafts to lower their spam score, using a remote
// text-generation model when one is configured and local substitutions otherwise.
package refine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"emailhub/internal/spam"
	"emailhub/pkg/logger"
	"emailhub/pkg/metrics"
	"emailhub/pkg/util"
)

const (
	ProviderHeuristic = "heuristic"
	ProviderOpenAI    = "openai"
)

type Draft struct {
	Subject string
	Body    string
}

// Result is the outcome of a refinement. Fallback is set when the remote model was
// configured but failed and the local rewrite was used instead; Reason then holds
// the failure message.
type Result struct {
	Draft     Draft
	SpamScore int
	Provider  string
	Fallback  bool
	Reason    string
}

// Completer asks a remote model to rewrite d and returns the raw text of its answer.
type Completer interface {
	Complete(ctx context.Context, d Draft) (string, error)
}

type Refiner struct {
	remote Completer
	logger *zap.Logger
}

// NewRefiner returns a Refiner. A nil remote selects the local rewrite for every call.
func NewRefiner(remote Completer, logger *zap.Logger) *Refiner {
	return &Refiner{remote: remote, logger: logger}
}

// Refine never fails: remote errors degrade to the local rewrite.
func (r *Refiner) Refine(ctx context.Context, subject, body string) Result {
	original := Draft{Subject: subject, Body: body}

	if r.remote == nil {
		metrics.IncrementRefine(ProviderHeuristic, "ok")
		return heuristicResult(original)
	}

	content, err := r.remote.Complete(ctx, original)
	if err != nil {
		logger.WithTrace(ctx, r.logger).Warn("Remote refinement failed, using local rewrite",
			zap.String("error_type", util.ClassifyError(err)),
			zap.Error(err),
		)
		metrics.IncrementRefine(ProviderHeuristic, "fallback")

		res := heuristicResult(original)
		res.Fallback = true
		res.Reason = err.Error()
		return res
	}

	draft, parsed := parseDraft(content, original)
	if parsed {
		metrics.IncrementRefine(ProviderOpenAI, "ok")
	} else {
		// The unparsed answer is reported as an unchanged remote rewrite, not as a fallback.
		logger.WithTrace(ctx, r.logger).Warn("Remote refinement returned unparseable content",
			zap.Int("content_length", len(content)),
		)
		metrics.IncrementRefine(ProviderOpenAI, "unparsed")
	}

	return Result{
		Draft:     draft,
		SpamScore: spam.Score(draft.Subject, draft.Body),
		Provider:  ProviderOpenAI,
	}
}

func heuristicResult(original Draft) Result {
	d := Rewrite(original)
	return Result{
		Draft:     d,
		SpamScore: spam.Score(d.Subject, d.Body),
		Provider:  ProviderHeuristic,
	}
}

// parseDraft decodes a {"subject": ..., "body": ...} object. A present string, number or
// boolean field replaces the original as text; null, nested values and missing fields keep
// it. parsed is false when content is not a JSON object.
func parseDraft(content string, original Draft) (Draft, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil || fields == nil {
		return original, false
	}

	out := original
	if s, ok := stringField(fields, "subject"); ok {
		out.Subject = s
	}
	if s, ok := stringField(fields, "body"); ok {
		out.Body = s
	}
	return out, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool:
		return string(raw), true
	default:
		return "", false
	}
}
