package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/invoicer/internal/report/domain"
)

func (s *Server) GetMonthlyRevenue(c *gin.Context) {
	r, ok := bindReportRange(c)
	if !ok {
		return
	}

	resp, err := s.reportSvc.MonthlyRevenue(c.Request.Context(), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStatusBreakdown(c *gin.Context) {
	r, ok := bindReportRange(c)
	if !ok {
		return
	}

	resp, err := s.reportSvc.StatusBreakdown(c.Request.Context(), r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExportReport streams a report as CSV. The kind path segment accepts
// either dashes or underscores.
func (s *Server) ExportReport(c *gin.Context) {
	r, ok := bindReportRange(c)
	if !ok {
		return
	}

	kind := strings.ReplaceAll(strings.TrimSpace(c.Param("kind")), "-", "_")
	export, err := s.reportSvc.Export(c.Request.Context(), kind, r)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

func bindReportRange(c *gin.Context) (reportdomain.Range, bool) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from must be RFC3339 or YYYY-MM-DD"))
		return reportdomain.Range{}, false
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to must be RFC3339 or YYYY-MM-DD"))
		return reportdomain.Range{}, false
	}

	var r reportdomain.Range
	if from != nil {
		r.From = *from
	}
	if to != nil {
		r.To = *to
	}
	return r, true
}
