package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoicer/internal/client"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/events"
	"github.com/smallbiznis/invoicer/internal/flow/openai"
	"github.com/smallbiznis/invoicer/internal/i18n"
	"github.com/smallbiznis/invoicer/internal/invoice"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicer/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicer/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicer/internal/observability/tracing"
	"github.com/smallbiznis/invoicer/internal/ocr"
	ocrdomain "github.com/smallbiznis/invoicer/internal/ocr/domain"
	"github.com/smallbiznis/invoicer/internal/plan"
	plandomain "github.com/smallbiznis/invoicer/internal/plan/domain"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	"github.com/smallbiznis/invoicer/internal/reminder"
	reminderdomain "github.com/smallbiznis/invoicer/internal/reminder/domain"
	"github.com/smallbiznis/invoicer/internal/report"
	reportdomain "github.com/smallbiznis/invoicer/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	events.Module,
	openai.Module,
	ratelimit.Module,
	client.Module,
	invoice.Module,
	dashboard.Module,
	report.Module,
	plan.Module,
	reminder.Module,
	ocr.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// maxUploadBytes bounds multipart OCR uploads.
const maxUploadBytes = 12 << 20

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	fallbackLang i18n.Language

	clientSvc    clientdomain.Service
	invoiceSvc   invoicedomain.Service
	dashboardSvc dashboarddomain.Service
	reportSvc    reportdomain.Service
	planSvc      plandomain.Service
	reminderSvc  reminderdomain.Service
	ocrSvc       ocrdomain.Service
	flowLimiter  *ratelimit.FlowLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	ClientSvc    clientdomain.Service
	InvoiceSvc   invoicedomain.Service
	DashboardSvc dashboarddomain.Service
	ReportSvc    reportdomain.Service
	PlanSvc      plandomain.Service
	ReminderSvc  reminderdomain.Service
	OCRSvc       ocrdomain.Service
	FlowLimiter  *ratelimit.FlowLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		fallbackLang: i18n.Match(p.Cfg.Profile.DefaultLanguage, i18n.Default),
		clientSvc:    p.ClientSvc,
		invoiceSvc:   p.InvoiceSvc,
		dashboardSvc: p.DashboardSvc,
		reportSvc:    p.ReportSvc,
		planSvc:      p.PlanSvc,
		reminderSvc:  p.ReminderSvc,
		ocrSvc:       p.OCRSvc,
		flowLimiter:  p.FlowLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.Language())
	api.Use(ErrorHandlingMiddleware())

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.POST("/invoices/calculate", s.CalculateInvoice)
	api.GET("/invoices/tabs", s.ListInvoiceTabs)
	api.GET("/invoices/past-due", s.ListPastDueInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.POST("/invoices/:id/status", s.UpdateInvoiceStatus)
	api.POST("/invoices/:id/reminder", s.FlowRateLimit(), s.SuggestInvoiceReminder)

	// -------- Dashboard --------
	api.GET("/dashboard", s.GetDashboard)

	// -------- Reports --------
	api.GET("/reports/monthly-revenue", s.GetMonthlyRevenue)
	api.GET("/reports/status-breakdown", s.GetStatusBreakdown)
	api.GET("/reports/:kind/export", s.ExportReport)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/current", s.GetCurrentPlan)
	api.POST("/plans/:id/select", s.SelectPlan)

	// -------- Flows --------
	api.POST("/reminders/suggest", s.FlowRateLimit(), s.SuggestReminder)
	api.POST("/ocr/extract", s.FlowRateLimit(), s.ExtractText)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(s.Language(), ErrorHandlingMiddleware(), func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
