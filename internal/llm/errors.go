package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Classified provider failures. Provider errors wrap exactly one of these.
var (
	ErrTimeout     = errors.New("llm request timed out")
	ErrUnavailable = errors.New("llm service unavailable")
	ErrEmptyOutput = errors.New("llm response did not include any output text")
)

// classifyError wraps a raw SDK or transport error with one of the
// sentinel errors above. Unknown failures count as unavailable.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", provider, ErrTimeout, err)
	case isTimeoutStatus(err):
		return fmt.Errorf("%s: %w: %w", provider, ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %w", provider, ErrTimeout, err)
	}

	return fmt.Errorf("%s: %w: %w", provider, ErrUnavailable, err)
}

func isTimeoutStatus(err error) bool {
	status := 0

	var openaiErr *openai.Error
	var geminiErr genai.APIError
	var geminiErrPtr *genai.APIError
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &geminiErr):
		status = geminiErr.Code
	case errors.As(err, &geminiErrPtr):
		status = geminiErrPtr.Code
	}

	return status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout
}
