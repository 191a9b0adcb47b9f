package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/flow"
	"github.com/smallbiznis/invoicer/internal/i18n"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	ocrdomain "github.com/smallbiznis/invoicer/internal/ocr/domain"
	plandomain "github.com/smallbiznis/invoicer/internal/plan/domain"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	reminderdomain "github.com/smallbiznis/invoicer/internal/reminder/domain"
	reportdomain "github.com/smallbiznis/invoicer/internal/report/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// flowError carries the message key shown when a generation flow fails.
type flowError struct {
	key string
	err error
}

func (e *flowError) Error() string { return e.err.Error() }
func (e *flowError) Unwrap() error { return e.err }

func withFlowMessage(key string, err error) error {
	if err == nil {
		return nil
	}
	return &flowError{key: key, err: err}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err, languageOf(c))
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error, lang i18n.Language) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: i18n.T(lang, i18n.KeyInternal),
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: i18n.T(lang, i18n.KeyInvalidRequest),
			Errors:  vErr.Errors,
		}
	}

	if sentinel := validationSentinel(err); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: i18n.T(lang, i18n.KeyInvalidRequest),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: i18n.T(lang, i18n.KeyNotFound),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    conflictType(err),
			Message: i18n.T(lang, i18n.KeyConflict),
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: i18n.T(lang, i18n.KeyRateLimited),
		}
	case errors.Is(err, flow.ErrGenerationFailed):
		key := i18n.KeyGenerationFailed
		var fErr *flowError
		if errors.As(err, &fErr) {
			key = fErr.key
		}
		return http.StatusBadGateway, errorPayload{
			Type:    "generation_failed",
			Message: i18n.T(lang, key),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: i18n.T(lang, i18n.KeyInternal),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: i18n.T(lang, i18n.KeyInternal),
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationSentinels are matched in order; the first hit names the code.
var validationSentinels = []error{
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	clientdomain.ErrInvalidName,
	clientdomain.ErrInvalidEmail,
	clientdomain.ErrInvalidID,
	invoicedomain.ErrEmptyItemList,
	invoicedomain.ErrInvalidLineItem,
	invoicedomain.ErrInvalidTaxRate,
	invoicedomain.ErrUnknownInvoiceStatus,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidClient,
	invoicedomain.ErrInvalidDates,
	invoicedomain.ErrInvalidDescription,
	reportdomain.ErrInvalidRange,
	ocrdomain.ErrInvalidImage,
	ocrdomain.ErrImageTooLarge,
	flow.ErrInvalidInput,
}

func validationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, reportdomain.ErrUnknownReport),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

var conflictSentinels = []error{
	ErrConflict,
	clientdomain.ErrClientHasInvoices,
	invoicedomain.ErrDuplicateInvoiceNumber,
	invoicedomain.ErrInvoiceVoid,
	invoicedomain.ErrInvoiceNotDraft,
	reminderdomain.ErrInvoiceNotRemindable,
}

func isConflictError(err error) bool {
	return conflictType(err) != ""
}

func conflictType(err error) string {
	for _, sentinel := range conflictSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_flow_input":
		return "input"
	case "empty_item_list", "invalid_line_item", "invalid_description":
		return "items"
	case "unknown_invoice_status":
		return "status"
	case "image_too_large":
		return "image"
	}
	return strings.TrimPrefix(code, "invalid_")
}

// classifyErrorForLog returns the error type and code written to the
// request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err, i18n.Default)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server", code
	default:
		return "client", code
	}
}
