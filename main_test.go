package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterSensitiveHeaders(t *testing.T) {
	got := filterSensitiveHeaders(map[string]string{
		"authorization":     "Bearer secret",
		"cookie":            "session=abc",
		"x-api-key":         "key",
		"x-request-timeout": "45",
	})

	assert.Equal(t, map[string]string{
		"authorization":     "[REDACTED]",
		"cookie":            "[REDACTED]",
		"x-api-key":         "[REDACTED]",
		"x-request-timeout": "45",
	}, got)
}
