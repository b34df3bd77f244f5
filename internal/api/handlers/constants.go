package handlers

import "time"

const (
	serviceName = "Teacher Assist AI Service"

	// HeaderRequestTimeout overrides the per-call LLM timeout, in seconds
	HeaderRequestTimeout = "X-Request-Timeout"

	// Usage stats window
	defaultStatsWindow = 30 * 24 * time.Hour
	dateLayout         = "2006-01-02"
)
