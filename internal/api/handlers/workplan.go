package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/gin-gonic/gin"
)

// WorkPlanFiller generates work plan metadata
type WorkPlanFiller interface {
	FillOne(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error)
	FillBulk(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*services.BulkResult, error)
}

type WorkPlanHandler struct {
	filler       WorkPlanFiller
	bulkMaxItems int
}

func NewWorkPlanHandler(filler WorkPlanFiller, bulkMaxItems int) *WorkPlanHandler {
	return &WorkPlanHandler{
		filler:       filler,
		bulkMaxItems: bulkMaxItems,
	}
}

type FillWorkPlanRequest struct {
	Activity string `json:"activity" binding:"required,max=500"`
	Theme    string `json:"theme" binding:"max=200"`
}

type FillWorkPlanResponse struct {
	Activity       string   `json:"activity"`
	Module         string   `json:"module"`
	CurriculumRefs []string `json:"curriculum_refs"`
	Objectives     []string `json:"objectives"`
}

type BulkActivity struct {
	ID       string `json:"id" binding:"max=100"`
	Activity string `json:"activity" binding:"max=500"`
}

type FillWorkPlanBulkRequest struct {
	Theme      string         `json:"theme" binding:"max=200"`
	Activities []BulkActivity `json:"activities" binding:"required,min=1,dive"`
	Stream     bool           `json:"stream"`
}

// FillWorkPlan handles POST /api/fill-work-plan
func (h *WorkPlanHandler) FillWorkPlan(c *gin.Context) {
	var req FillWorkPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	activity := strings.TrimSpace(req.Activity)
	if activity == "" {
		respondError(c, apperror.Validation("activity", "activity must not be empty"))
		return
	}

	timeout, err := requestTimeout(c)
	if err != nil {
		respondError(c, err)
		return
	}

	metadata, err := h.filler.FillOne(c.Request.Context(), workplan.GenerationRequest{
		ActivityText: activity,
		Theme:        strings.TrimSpace(req.Theme),
	}, timeout)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, FillWorkPlanResponse{
		Activity:       activity,
		Module:         metadata.Module,
		CurriculumRefs: metadata.CurriculumRefs,
		Objectives:     metadata.Objectives,
	})
}

// FillWorkPlanBulk handles POST /api/fill-work-plan/bulk. With stream=true
// the reply is a server-sent event stream: one progress event per item, one
// result event per item in submission order and a final done event.
func (h *WorkPlanHandler) FillWorkPlanBulk(c *gin.Context) {
	var req FillWorkPlanBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	if len(req.Activities) > h.bulkMaxItems {
		respondError(c, apperror.Validation("activities", "must contain at most "+strconv.Itoa(h.bulkMaxItems)+" items"))
		return
	}

	timeout, err := requestTimeout(c)
	if err != nil {
		respondError(c, err)
		return
	}

	theme := strings.TrimSpace(req.Theme)
	requests := make([]workplan.GenerationRequest, len(req.Activities))
	for i, a := range req.Activities {
		id := a.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		requests[i] = workplan.GenerationRequest{
			ID:           id,
			ActivityText: strings.TrimSpace(a.Activity),
			Theme:        theme,
		}
	}

	if !req.Stream {
		result, err := h.filler.FillBulk(c.Request.Context(), requests, timeout, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set("bulk_run_id", result.RunID)
		c.JSON(http.StatusOK, result)
		return
	}

	stream := newEventStream(c)
	result, err := h.filler.FillBulk(c.Request.Context(), requests, timeout, func(completed, total int) {
		stream.send("progress", gin.H{"completed": completed, "total": total})
	})
	if err != nil {
		if !stream.started {
			respondError(c, err)
			return
		}
		appErr := toAppError(err)
		stream.send("error", ErrorResponse{Error: appErr.Message, ErrorCode: appErr.Code})
		return
	}
	c.Set("bulk_run_id", result.RunID)

	for _, item := range orderedResults(result.BulkRunReport) {
		stream.send("result", item)
	}
	stream.send("done", gin.H{
		"run_id":    result.RunID,
		"total":     result.Total,
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
}

// bulkItemResult is one item of a streamed bulk run
type bulkItemResult struct {
	Index    int                         `json:"index"`
	ID       string                      `json:"id"`
	Success  bool                        `json:"success"`
	Metadata *workplan.GeneratedMetadata `json:"metadata,omitempty"`
	Failure  *workplan.BulkFailure       `json:"failure,omitempty"`
}

// orderedResults merges successes and failures back into submission order
func orderedResults(report *workplan.BulkRunReport) []bulkItemResult {
	items := make([]bulkItemResult, report.Total)
	for _, s := range report.Succeeded {
		items[s.Index] = bulkItemResult{Index: s.Index, ID: s.ID, Success: true, Metadata: s.Metadata}
	}
	for _, f := range report.Failed {
		failure := f
		items[f.Index] = bulkItemResult{Index: f.Index, ID: f.ID, Failure: &failure}
	}
	return items
}

// eventStream writes server-sent events. Headers are sent with the first event
// so a failure before any progress can still be answered with a JSON error.
type eventStream struct {
	c       *gin.Context
	started bool
}

func newEventStream(c *gin.Context) *eventStream {
	return &eventStream{c: c}
}

func (s *eventStream) send(event string, data any) {
	if !s.started {
		s.c.Header("Content-Type", "text/event-stream")
		s.c.Header("Cache-Control", "no-cache")
		s.c.Header("Connection", "keep-alive")
		s.c.Header("X-Accel-Buffering", "no")
		s.c.Status(http.StatusOK)
		s.started = true
	}
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}

// requestTimeout reads the X-Request-Timeout override. Zero means unset.
func requestTimeout(c *gin.Context) (time.Duration, error) {
	raw := strings.TrimSpace(c.GetHeader(HeaderRequestTimeout))
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		logger.Debug("Invalid request timeout header", logger.Fields{"value": raw})
		return 0, apperror.Validation(HeaderRequestTimeout, "must be a positive number of seconds")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
