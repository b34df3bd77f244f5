package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/gin-gonic/gin"
)

// UsageReporter aggregates the generation log
type UsageReporter interface {
	GetStats(ctx context.Context, from, to time.Time) (*services.UsageStats, error)
}

type UsageHandler struct {
	usage UsageReporter
	now   func() time.Time
}

func NewUsageHandler(usage UsageReporter) *UsageHandler {
	return &UsageHandler{usage: usage, now: time.Now}
}

// GetStats handles GET /api/usage/stats?from&to. Both bounds accept RFC 3339
// or YYYY-MM-DD; the window defaults to the last 30 days.
func (h *UsageHandler) GetStats(c *gin.Context) {
	to := h.now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			respondError(c, apperror.Validation("to", "must be RFC 3339 or YYYY-MM-DD"))
			return
		}
		to = t
	}

	from := to.Add(-defaultStatsWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			respondError(c, apperror.Validation("from", "must be RFC 3339 or YYYY-MM-DD"))
			return
		}
		from = t
	}

	if !from.Before(to) {
		respondError(c, apperror.Validation("from", "must be before to"))
		return
	}

	stats, err := h.usage.GetStats(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, apperror.Database(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, s)
}
