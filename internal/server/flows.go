package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/i18n"
	ocrdomain "github.com/smallbiznis/invoicer/internal/ocr/domain"
	reminderdomain "github.com/smallbiznis/invoicer/internal/reminder/domain"
)

const uploadField = "image"

func (s *Server) SuggestReminder(c *gin.Context) {
	c.Set(contextFlowKey, "invoiceReminderSuggestion")

	var req reminderdomain.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reminderSvc.Suggest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, withFlowMessage(i18n.KeyReminderFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExtractText accepts either a JSON body carrying a data URI or a
// multipart upload in the "image" field.
func (s *Server) ExtractText(c *gin.Context) {
	c.Set(contextFlowKey, "extractInvoiceData")

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		s.extractUpload(c)
		return
	}

	var req ocrdomain.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ocrSvc.Extract(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, withFlowMessage(i18n.KeyOCRFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) extractUpload(c *gin.Context) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		AbortWithError(c, newValidationError(uploadField, "missing_image", "image file is required"))
		return
	}
	if header.Size > ocrdomain.MaxImageBytes {
		AbortWithError(c, ocrdomain.ErrImageTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	resp, err := s.ocrSvc.ExtractUpload(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, ocrdomain.ErrInvalidImage) {
			AbortWithError(c, newValidationError(uploadField, "unsupported_file", i18n.T(languageOf(c), i18n.KeyOCRUnsupportedFile)))
			return
		}
		AbortWithError(c, withFlowMessage(i18n.KeyOCRFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
