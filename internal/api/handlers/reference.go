package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/gin-gonic/gin"
)

// ReferenceReader serves the reference vocabulary
type ReferenceReader interface {
	ListCurriculumRefs(ctx context.Context) (map[string]string, error)
	GetCurriculumRef(ctx context.Context, code string) (*models.CurriculumReference, error)
	ListModules(ctx context.Context, aiSuggested *bool) ([]models.EducationalModule, error)
}

type ReferenceHandler struct {
	refs ReferenceReader
}

func NewReferenceHandler(refs ReferenceReader) *ReferenceHandler {
	return &ReferenceHandler{refs: refs}
}

// ListCurriculumRefs handles GET /api/curriculum-refs
func (h *ReferenceHandler) ListCurriculumRefs(c *gin.Context) {
	refs, err := h.refs.ListCurriculumRefs(c.Request.Context())
	if err != nil {
		respondError(c, storageError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"references": refs,
		"count":      len(refs),
	})
}

// GetCurriculumRef handles GET /api/curriculum-refs/:code
func (h *ReferenceHandler) GetCurriculumRef(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))

	ref, err := h.refs.GetCurriculumRef(c.Request.Context(), code)
	if services.IsNotFound(err) {
		respondError(c, apperror.New(err, http.StatusNotFound, apperror.CodeReferenceNotFound,
			fmt.Sprintf("Nie znaleziono kodu podstawy programowej: %s", code)))
		return
	}
	if err != nil {
		respondError(c, storageError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference_code": ref.ReferenceCode,
		"full_text":      ref.FullText,
		"created_at":     ref.CreatedAt,
	})
}

// ListModules handles GET /api/modules?ai_suggested=true|false
func (h *ReferenceHandler) ListModules(c *gin.Context) {
	var filter *bool
	if raw, ok := c.GetQuery("ai_suggested"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperror.Validation("ai_suggested", "must be true or false"))
			return
		}
		filter = &v
	}

	modules, err := h.refs.ListModules(c.Request.Context(), filter)
	if err != nil {
		respondError(c, storageError(err))
		return
	}
	if modules == nil {
		modules = []models.EducationalModule{}
	}

	c.JSON(http.StatusOK, gin.H{
		"modules": modules,
		"count":   len(modules),
	})
}

// storageError reports reference reads that failed in the database
func storageError(err error) error {
	if appErr := toAppError(err); appErr.Code != apperror.CodeInternal {
		return appErr
	}
	return apperror.Database(err)
}
