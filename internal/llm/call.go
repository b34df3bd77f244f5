package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/getsentry/sentry-go"
)

// Chat roles accepted in GenerationRequest.InputArray
const (
	userRole      = "user"
	developerRole = "developer"
	systemRole    = "system"
)

const previewLen = 200

// callOutcome is what a provider extracts from one SDK response
type callOutcome struct {
	text     string
	model    string // as reported by the provider; empty keeps the requested one
	usage    TokenUsage
	rawUsage any
	logExtra logger.Fields
}

// instrument runs one provider round trip inside a Sentry transaction.
// SDK errors are classified, blank output becomes ErrEmptyOutput.
func instrument(ctx context.Context, provider string, request *GenerationRequest, call func(context.Context) (callOutcome, error)) (*GenerationResponse, error) {
	start := time.Now()
	tx := sentry.StartTransaction(ctx, provider+".generate")
	tx.SetTag("model", request.Model)
	tx.SetTag("provider", provider)
	ok := false
	defer func() {
		tx.SetTag("success", strconv.FormatBool(ok))
		tx.Finish()
	}()

	span := tx.StartChild(provider + ".api_call")
	out, err := call(span.Context())
	span.Finish()

	if err != nil {
		logger.Warn("LLM request failed", logger.Fields{
			"provider":    provider,
			"model":       request.Model,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return nil, classifyError(provider, err)
	}

	text := extractAndCleanTextOutput(out.text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrEmptyOutput)
	}
	model := out.model
	if model == "" {
		model = request.Model
	}

	fields := logger.Fields{
		"provider":      provider,
		"model":         model,
		"output_length": len(text),
		"preview":       truncate(text, previewLen),
		"total_tokens":  out.usage.TotalTokens,
		"duration_ms":   time.Since(start).Milliseconds(),
	}
	for k, v := range out.logExtra {
		fields[k] = v
	}
	logger.Debug("LLM response received", fields)

	ok = true
	return &GenerationResponse{
		RawOutput: text,
		Model:     model,
		Usage:     out.usage,
		RawUsage:  out.rawUsage,
	}, nil
}

// extractAndCleanTextOutput strips markdown code fences from model output
func extractAndCleanTextOutput(textOutput string) string {
	cleaned := strings.TrimSpace(textOutput)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// truncate cuts s to maxLen runes so previews never end mid-character
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
