// Package server exposes the registry over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	"github.com/railzwaylabs/biochar/internal/bootstrap"
	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	"github.com/railzwaylabs/biochar/internal/config"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/observability"
	qualitydomain "github.com/railzwaylabs/biochar/internal/quality/domain"
	"github.com/railzwaylabs/biochar/internal/recalc"
	recalcdomain "github.com/railzwaylabs/biochar/internal/recalc/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(registerLifecycle),
)

// RecalcQueue is the part of the recalculation queue the API drives.
type RecalcQueue interface {
	Enqueue(ctx context.Context, job recalc.Job) (*recalc.Task, error)
	Get(ctx context.Context, id string) (*recalcdomain.TaskResponse, error)
}

type Params struct {
	fx.In

	Config      config.Config
	Log         *zap.Logger
	DB          *gorm.DB               `optional:"true"`
	Metrics     *observability.Metrics `optional:"true"`
	Tracer      trace.Tracer           `optional:"true"`
	SchemaGate  bootstrap.SchemaGate   `optional:"true"`
	Methodology *methodology.Holder    `optional:"true"`
	Queue       *recalc.Queue          `optional:"true"`

	RecordsSvc     recordsdomain.Service
	QualitySvc     qualitydomain.Service
	PeriodSvc      perioddomain.Service
	CalculationSvc calculationdomain.Service
	CORCSvc        corcdomain.Service
	BCUSvc         bcudomain.Service
	AuditExportSvc auditdomain.ExportService
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	db          *gorm.DB
	metrics     *observability.Metrics
	tracer      trace.Tracer
	schemaGate  bootstrap.SchemaGate
	methodology *methodology.Holder
	queue       RecalcQueue

	recordsSvc     recordsdomain.Service
	qualitySvc     qualitydomain.Service
	periodSvc      perioddomain.Service
	calculationSvc calculationdomain.Service
	corcSvc        corcdomain.Service
	bcuSvc         bcudomain.Service
	auditExportSvc auditdomain.ExportService
}

func NewServer(p Params) *Server {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:         gin.New(),
		cfg:            p.Config,
		log:            p.Log.Named("http"),
		db:             p.DB,
		metrics:        p.Metrics,
		tracer:         p.Tracer,
		schemaGate:     p.SchemaGate,
		methodology:    p.Methodology,
		recordsSvc:     p.RecordsSvc,
		qualitySvc:     p.QualitySvc,
		periodSvc:      p.PeriodSvc,
		calculationSvc: p.CalculationSvc,
		corcSvc:        p.CORCSvc,
		bcuSvc:         p.BCUSvc,
		auditExportSvc: p.AuditExportSvc,
	}
	if p.Queue != nil {
		s.queue = p.Queue
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggerMiddleware())
	if s.tracer != nil {
		s.engine.Use(s.tracingMiddleware())
	}
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func RegisterRoutes(s *Server) {
	s.RegisterSystemRoutes()
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/facilities", s.CreateFacility)
	api.GET("/facilities/:id", s.GetFacility)
	api.GET("/facilities/:id/monitoring-periods", s.ListFacilityMonitoringPeriods)

	api.POST("/production-batches", s.CreateProductionBatch)
	api.GET("/production-batches/:id", s.GetProductionBatch)
	api.GET("/production-batches/:id/lab-tests", s.ListBatchLabTests)
	api.POST("/lab-tests", s.RecordLabTest)
	api.DELETE("/lab-tests/:id", s.DeleteLabTest)

	api.POST("/feedstock-deliveries", s.CreateFeedstockDelivery)
	api.POST("/feedstock-allocations", s.CreateFeedstockAllocation)
	api.POST("/energy-usages", s.CreateEnergyUsage)
	api.POST("/sequestration-events", s.CreateSequestrationEvent)
	api.POST("/leakage-assessments", s.CreateLeakageAssessment)

	api.POST("/monitoring-periods", s.CreateMonitoringPeriod)
	api.GET("/monitoring-periods/:id", s.GetMonitoringPeriod)
	api.POST("/monitoring-periods/:id/calculate", s.CalculateMonitoringPeriod)
	api.POST("/monitoring-periods/:id/recalculate", s.RecalculateMonitoringPeriod)
	api.GET("/recalculation-tasks/:id", s.GetRecalculationTask)

	api.POST("/corcs", s.CreateCORC)
	api.GET("/corcs", s.ListCORCs)
	api.GET("/corcs/:id", s.GetCORC)
	api.PATCH("/corcs/:id", s.UpdateCORC)
	api.DELETE("/corcs/:id", s.DeleteCORC)
	api.POST("/corcs/:id/issue", s.IssueCORC)
	api.POST("/corcs/:id/retire", s.RetireCORC)
	api.GET("/corcs/:id/certificate", s.GetCORCCertificate)

	api.POST("/bcus", s.CreateBCU)
	api.GET("/bcus/:id", s.GetBCU)
	api.POST("/bcus/:id/transfer", s.TransferBCU)
	api.POST("/bcus/:id/retire", s.RetireBCU)
	api.DELETE("/bcus/:id", s.DeleteBCU)

	api.GET("/audit/export", s.ExportAuditLogs)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
