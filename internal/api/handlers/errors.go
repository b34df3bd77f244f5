package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report validation failures by JSON field name
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string         `json:"error"`
	ErrorCode string         `json:"error_code"`
	Details   map[string]any `json:"details,omitempty"`
}

// respondError maps err to an AppError, logs it and writes the error body
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)

	fields := logger.WithContext(c)
	fields["error_code"] = appErr.Code
	fields["status_code"] = appErr.Status
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("Request failed", appErr, fields)
	} else {
		fields["error"] = appErr.Error()
		logger.Warn("Request rejected", fields)
	}

	c.AbortWithStatusJSON(appErr.Status, ErrorResponse{
		Error:     appErr.Message,
		ErrorCode: appErr.Code,
		Details:   appErr.Details,
	})
}

func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var genErr *workplan.GenerationError
	if errors.As(err, &genErr) {
		return generationError(genErr)
	}

	if services.IsNotFound(err) {
		return apperror.NotFound(err, apperror.CodeReferenceNotFound)
	}
	return apperror.Internal(err)
}

// generationError maps a core failure onto its HTTP status
func generationError(err *workplan.GenerationError) *apperror.AppError {
	status := http.StatusInternalServerError
	var details map[string]any

	switch err.Kind {
	case workplan.KindEmptyActivity:
		status = http.StatusBadRequest
		details = map[string]any{"field": "activity", "reason": "activity must not be empty"}
	case workplan.KindTimeout:
		status = http.StatusGatewayTimeout
	case workplan.KindUnavailable:
		status = http.StatusServiceUnavailable
	case workplan.KindValidationFailed:
		details = map[string]any{"reason": string(err.Reason)}
	case workplan.KindMalformedOutput:
		details = map[string]any{"reason": string(err.Kind)}
	}

	appErr := apperror.New(err, status, err.Code(), err.Message())
	if details != nil {
		appErr = appErr.WithDetails(details)
	}
	return appErr
}

// bindError turns a ShouldBindJSON failure into a validation error naming
// the first offending field.
func bindError(err error) *apperror.AppError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return apperror.Validation(fieldPath(fe), validationReason(fe))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return apperror.Validation("body", "request body is empty")
	case errors.As(err, &syntaxErr):
		return apperror.Validation("body", "malformed JSON")
	case errors.As(err, &typeErr):
		return apperror.Validation(typeErr.Field, fmt.Sprintf("must be %s", typeErr.Type))
	default:
		return apperror.Validation("body", err.Error())
	}
}

// fieldPath drops the request struct name from the validator namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
