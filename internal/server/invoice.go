package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/i18n"
	"github.com/smallbiznis/invoicer/internal/invoice/calculator"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/smallbiznis/invoicer/pkg/money"
)

type invoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	ClientID      string               `json:"client_id"`
	InvoiceNumber string               `json:"invoice_number"`
	IssueDate     string               `json:"issue_date"`
	DueDate       string               `json:"due_date"`
	Items         []invoiceItemRequest `json:"items"`
	TaxRate       *decimal.Decimal     `json:"tax_rate"`
	TaxPercent    *decimal.Decimal     `json:"tax_percent"`
	Status        string               `json:"status"`
	Notes         string               `json:"notes"`
}

type calculateInvoiceRequest struct {
	Items      []invoiceItemRequest `json:"items"`
	TaxRate    *decimal.Decimal     `json:"tax_rate"`
	TaxPercent *decimal.Decimal     `json:"tax_percent"`
}

type calculateInvoiceResponse struct {
	LineTotals  []decimal.Decimal `json:"line_totals"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	TaxRate     decimal.Decimal   `json:"tax_rate"`
	TaxAmount   decimal.Decimal   `json:"tax_amount"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

type invoiceReminderRequest struct {
	PaymentHistory string `json:"payment_history"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "issue_date must be YYYY-MM-DD"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "due_date must be YYYY-MM-DD"))
		return
	}
	taxRate, err := requestRate(req.TaxRate, req.TaxPercent)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]invoicedomain.CreateItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = invoicedomain.CreateItemRequest{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	var issue time.Time
	if issueDate != nil {
		issue = *issueDate
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ClientID:      strings.TrimSpace(req.ClientID),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		IssueDate:     issue,
		DueDate:       dueDate,
		Items:         items,
		TaxRate:       taxRate,
		Status:        req.Status,
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Status:    strings.TrimSpace(query.Status),
		ClientID:  strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CalculateInvoice previews totals without persisting anything.
func (s *Server) CalculateInvoice(c *gin.Context) {
	var req calculateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	taxRate, err := requestRate(req.TaxRate, req.TaxPercent)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	lines := make([]calculator.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = calculator.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	totals, err := calculator.Calculate(lines, taxRate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": calculateInvoiceResponse{
		LineTotals:  roundAll(totals.LineTotals),
		Subtotal:    totals.Subtotal,
		TaxRate:     totals.TaxRate,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.TotalAmount,
	}})
}

func (s *Server) ListInvoiceTabs(c *gin.Context) {
	resp, err := s.invoiceSvc.ListByStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPastDueInvoices(c *gin.Context) {
	asOf, err := parseOptionalDate(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, newValidationError("as_of", "invalid_as_of", "as_of must be YYYY-MM-DD"))
		return
	}

	var at time.Time
	if asOf != nil {
		at = *asOf
	}
	resp, err := s.invoiceSvc.ListPastDue(c.Request.Context(), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.UpdateStatus(c.Request.Context(), invoicedomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SuggestInvoiceReminder drafts a reminder from a stored invoice. The body
// is optional.
func (s *Server) SuggestInvoiceReminder(c *gin.Context) {
	c.Set(contextFlowKey, "invoiceReminderSuggestion")

	var req invoiceReminderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.reminderSvc.SuggestForInvoice(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.PaymentHistory)
	if err != nil {
		AbortWithError(c, withFlowMessage(i18n.KeyReminderFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// requestRate resolves the tax rate from either tax_rate, a fraction in
// [0, 1], or tax_percent, a percentage in [0, 100]. Sending both is an error.
func requestRate(fraction, percent *decimal.Decimal) (*decimal.Decimal, error) {
	switch {
	case fraction != nil && percent != nil:
		return nil, newValidationError("tax_rate", "invalid_tax_rate", "send either tax_rate or tax_percent, not both")
	case percent != nil:
		return parseOptionalPercent(percent.String())
	case fraction != nil:
		return parseOptionalRate(fraction.String())
	}
	return nil, nil
}

func roundAll(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = money.Round(v)
	}
	return out
}
