package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockFiller is a WorkPlanFiller with overridable behaviour
type mockFiller struct {
	fillOneFunc  func(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error)
	fillBulkFunc func(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*services.BulkResult, error)
}

func (m *mockFiller) FillOne(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error) {
	return m.fillOneFunc(ctx, req, timeout)
}

func (m *mockFiller) FillBulk(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*services.BulkResult, error) {
	return m.fillBulkFunc(ctx, requests, timeout, onProgress)
}

func setupWorkPlanRouter(filler WorkPlanFiller) *gin.Engine {
	router := gin.New()
	h := NewWorkPlanHandler(filler, 3)
	router.POST("/api/fill-work-plan", h.FillWorkPlan)
	router.POST("/api/fill-work-plan/bulk", h.FillWorkPlanBulk)
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func successFiller() *mockFiller {
	return &mockFiller{
		fillOneFunc: func(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error) {
			return &workplan.GeneratedMetadata{
				Module:         "MATEMATYKA",
				CurriculumRefs: []string{"4.15", "4.18"},
				Objectives:     []string{"Dziecko potrafi przeliczać w zakresie 5"},
			}, nil
		},
	}
}

func TestFillWorkPlan_Success(t *testing.T) {
	var got workplan.GenerationRequest
	filler := successFiller()
	inner := filler.fillOneFunc
	filler.fillOneFunc = func(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error) {
		got = req
		return inner(ctx, req, timeout)
	}
	router := setupWorkPlanRouter(filler)

	w := postJSON(t, router, "/api/fill-work-plan", FillWorkPlanRequest{
		Activity: "  Zabawa w sklep z owocami ",
		Theme:    " Jesień - zbiory ",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp FillWorkPlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, FillWorkPlanResponse{
		Activity:       "Zabawa w sklep z owocami",
		Module:         "MATEMATYKA",
		CurriculumRefs: []string{"4.15", "4.18"},
		Objectives:     []string{"Dziecko potrafi przeliczać w zakresie 5"},
	}, resp)
	assert.Equal(t, "Jesień - zbiory", got.Theme)
}

func TestFillWorkPlan_InputValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{"missing activity", map[string]any{"theme": "Jesień"}, "activity"},
		{"whitespace activity", FillWorkPlanRequest{Activity: "   "}, "activity"},
		{"activity too long", FillWorkPlanRequest{Activity: strings.Repeat("a", 501)}, "activity"},
		{"theme too long", FillWorkPlanRequest{Activity: "Liczenie", Theme: strings.Repeat("ż", 201)}, "theme"},
		{"malformed json", `{"activity":`, "body"},
		{"wrong type", `{"activity": 5}`, "activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			filler := &mockFiller{fillOneFunc: func(context.Context, workplan.GenerationRequest, time.Duration) (*workplan.GeneratedMetadata, error) {
				called = true
				return nil, nil
			}}

			w := postJSON(t, setupWorkPlanRouter(filler), "/api/fill-work-plan", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, apperror.CodeValidation, resp.ErrorCode)
			assert.Equal(t, apperror.MessageInvalidInput, resp.Error)
			assert.Equal(t, tt.wantField, resp.Details["field"])
			assert.NotEmpty(t, resp.Details["reason"])
			assert.False(t, called)
		})
	}
}

func TestFillWorkPlan_ActivityAtLimit(t *testing.T) {
	w := postJSON(t, setupWorkPlanRouter(successFiller()), "/api/fill-work-plan", FillWorkPlanRequest{
		Activity: strings.Repeat("ą", 500),
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFillWorkPlan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{"timeout", &workplan.GenerationError{Kind: workplan.KindTimeout}, http.StatusGatewayTimeout, "LLM_TIMEOUT", ""},
		{"unavailable", &workplan.GenerationError{Kind: workplan.KindUnavailable}, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ""},
		{"malformed", &workplan.GenerationError{Kind: workplan.KindMalformedOutput}, http.StatusInternalServerError, "INTERNAL_ERROR", "malformed_output"},
		{
			"validation failed",
			&workplan.GenerationError{Kind: workplan.KindValidationFailed, Reason: workplan.NoValidCurriculumRefs},
			http.StatusInternalServerError, "INTERNAL_ERROR", "no_valid_curriculum_refs",
		},
		{"empty activity", &workplan.GenerationError{Kind: workplan.KindEmptyActivity}, http.StatusBadRequest, "VALIDATION_ERROR", "activity must not be empty"},
		{"database", apperror.Database(errors.New("connection refused")), http.StatusInternalServerError, "DATABASE_ERROR", ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filler := &mockFiller{fillOneFunc: func(context.Context, workplan.GenerationRequest, time.Duration) (*workplan.GeneratedMetadata, error) {
				return nil, tt.err
			}}

			w := postJSON(t, setupWorkPlanRouter(filler), "/api/fill-work-plan", FillWorkPlanRequest{Activity: "Liczenie"}, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
			assert.NotEmpty(t, resp.Error)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, resp.Details["reason"])
			}
		})
	}
}

func TestFillWorkPlan_TimeoutHeader(t *testing.T) {
	var gotTimeout time.Duration
	filler := successFiller()
	inner := filler.fillOneFunc
	filler.fillOneFunc = func(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error) {
		gotTimeout = timeout
		return inner(ctx, req, timeout)
	}
	router := setupWorkPlanRouter(filler)

	w := postJSON(t, router, "/api/fill-work-plan", FillWorkPlanRequest{Activity: "Liczenie"}, map[string]string{HeaderRequestTimeout: "2.5"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2500*time.Millisecond, gotTimeout)

	w = postJSON(t, router, "/api/fill-work-plan", FillWorkPlanRequest{Activity: "Liczenie"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, gotTimeout)

	w = postJSON(t, router, "/api/fill-work-plan", FillWorkPlanRequest{Activity: "Liczenie"}, map[string]string{HeaderRequestTimeout: "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, HeaderRequestTimeout, decodeError(t, w).Details["field"])
}

func bulkReport() *services.BulkResult {
	return &services.BulkResult{
		RunID: "run-1",
		BulkRunReport: &workplan.BulkRunReport{
			Total: 2,
			Succeeded: []workplan.BulkSuccess{{
				Index:    0,
				ID:       "a",
				Metadata: &workplan.GeneratedMetadata{Module: "MATEMATYKA", CurriculumRefs: []string{"4.15"}, Objectives: []string{"Dziecko liczy do pięciu"}},
			}},
			Failed: []workplan.BulkFailure{{
				Index:           1,
				ID:              "1",
				ActivitySnippet: "Rysowanie",
				Error:           "Żądanie przekroczyło limit czasu. Spróbuj ponownie.",
				Kind:            workplan.KindTimeout,
				Code:            "LLM_TIMEOUT",
			}},
		},
	}
}

func TestFillWorkPlanBulk_JSON(t *testing.T) {
	var got []workplan.GenerationRequest
	filler := &mockFiller{fillBulkFunc: func(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*services.BulkResult, error) {
		got = requests
		assert.Nil(t, onProgress)
		return bulkReport(), nil
	}}

	w := postJSON(t, setupWorkPlanRouter(filler), "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{
		Theme: "Jesień",
		Activities: []BulkActivity{
			{ID: "a", Activity: " Liczenie "},
			{Activity: "Rysowanie"},
		},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, got, 2)
	assert.Equal(t, workplan.GenerationRequest{ID: "a", ActivityText: "Liczenie", Theme: "Jesień"}, got[0])
	assert.Equal(t, "1", got[1].ID)

	var resp struct {
		RunID     string                 `json:"run_id"`
		Total     int                    `json:"total"`
		Succeeded []workplan.BulkSuccess `json:"succeeded"`
		Failed    []workplan.BulkFailure `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Succeeded, 1)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "LLM_TIMEOUT", resp.Failed[0].Code)
}

func TestFillWorkPlanBulk_Limits(t *testing.T) {
	filler := &mockFiller{fillBulkFunc: func(context.Context, []workplan.GenerationRequest, time.Duration, workplan.ProgressFunc) (*services.BulkResult, error) {
		t.Fatal("bulk run must not start")
		return nil, nil
	}}
	router := setupWorkPlanRouter(filler)

	w := postJSON(t, router, "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "activities", decodeError(t, w).Details["field"])

	tooMany := make([]BulkActivity, 4)
	for i := range tooMany {
		tooMany[i] = BulkActivity{Activity: "Liczenie"}
	}
	w = postJSON(t, router, "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{Activities: tooMany}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "activities", decodeError(t, w).Details["field"])

	w = postJSON(t, router, "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{
		Activities: []BulkActivity{{Activity: strings.Repeat("a", 501)}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "activities[0].activity", decodeError(t, w).Details["field"])
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events  []sseEvent
		current sseEvent
	)
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			current.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && current.name != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestFillWorkPlanBulk_Stream(t *testing.T) {
	filler := &mockFiller{fillBulkFunc: func(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*services.BulkResult, error) {
		require.NotNil(t, onProgress)
		onProgress(1, 2)
		onProgress(2, 2)
		return bulkReport(), nil
	}}

	w := postJSON(t, setupWorkPlanRouter(filler), "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{
		Activities: []BulkActivity{{ID: "a", Activity: "Liczenie"}, {Activity: "Rysowanie"}},
		Stream:     true,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(t, w.Body.String())
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.name
	}
	assert.Equal(t, []string{"progress", "progress", "result", "result", "done"}, names)
	assert.JSONEq(t, `{"completed":1,"total":2}`, events[0].data)

	var first, second bulkItemResult
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &first))
	require.NoError(t, json.Unmarshal([]byte(events[3].data), &second))
	assert.True(t, first.Success)
	assert.Equal(t, "MATEMATYKA", first.Metadata.Module)
	assert.False(t, second.Success)
	assert.Equal(t, workplan.KindTimeout, second.Failure.Kind)

	assert.JSONEq(t, `{"run_id":"run-1","total":2,"succeeded":1,"failed":1}`, events[4].data)
}

func TestFillWorkPlanBulk_StreamSnapshotFailure(t *testing.T) {
	filler := &mockFiller{fillBulkFunc: func(context.Context, []workplan.GenerationRequest, time.Duration, workplan.ProgressFunc) (*services.BulkResult, error) {
		return nil, apperror.Database(errors.New("connection refused"))
	}}

	w := postJSON(t, setupWorkPlanRouter(filler), "/api/fill-work-plan/bulk", FillWorkPlanBulkRequest{
		Activities: []BulkActivity{{Activity: "Liczenie"}},
		Stream:     true,
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeDatabase, decodeError(t, w).ErrorCode)
}
