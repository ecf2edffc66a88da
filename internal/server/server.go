package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rentrollhq/rentroll/internal/billing"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/config"
	"github.com/rentrollhq/rentroll/internal/contract"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/meter"
	meterdomain "github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/rentrollhq/rentroll/internal/observability"
	"github.com/rentrollhq/rentroll/internal/payment"
	paymentdomain "github.com/rentrollhq/rentroll/internal/payment/domain"
	"github.com/rentrollhq/rentroll/internal/payout"
	payoutdomain "github.com/rentrollhq/rentroll/internal/payout/domain"
	"github.com/rentrollhq/rentroll/internal/property"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	property.Module,
	contract.Module,
	meter.Module,
	billing.Module,
	payment.Module,
	payout.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(metrics *observability.Metrics) *gin.Engine {
	return NewEngine(metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
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
	engine      *gin.Engine
	cfg         config.Config
	propertySvc propertydomain.Service
	contractSvc contractdomain.Service
	meterSvc    meterdomain.Service
	billingSvc  billingdomain.Service
	paymentSvc  paymentdomain.Service
	payoutSvc   payoutdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	PropertySvc propertydomain.Service
	ContractSvc contractdomain.Service
	MeterSvc    meterdomain.Service
	BillingSvc  billingdomain.Service
	PaymentSvc  paymentdomain.Service
	PayoutSvc   payoutdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		propertySvc: p.PropertySvc,
		contractSvc: p.ContractSvc,
		meterSvc:    p.MeterSvc,
		billingSvc:  p.BillingSvc,
		paymentSvc:  p.PaymentSvc,
		payoutSvc:   p.PayoutSvc,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/contracts", s.CreateContract)
	v1.GET("/contracts/:id", s.GetContract)
	v1.PUT("/contracts/:id/apartments", s.ReplaceContractApartments)

	v1.POST("/apartments/:id/owner", s.AssignApartmentOwner)
	v1.GET("/apartments/:id/owner", s.GetApartmentOwner)

	v1.POST("/meters/:id/readings", s.RecordMeterReading)
	v1.GET("/meters/:id/consumption", s.GetMeterConsumption)

	v1.POST("/bills/generate", s.GenerateBills)
	v1.GET("/bills", s.ListBills)
	v1.GET("/bills/exists", s.CheckBillsExist)
	v1.GET("/bills/:id", s.GetBill)
	v1.POST("/bills/:id/payments", s.AddPayment)
	v1.POST("/bills/:id/mark-paid", s.MarkBillPaid)

	v1.POST("/payouts/generate", s.GeneratePayouts)
	v1.GET("/payouts/:id", s.GetPayout)
	v1.POST("/payouts/:id/refresh", s.RefreshPayout)
	v1.POST("/payouts/:id/mark-paid", s.MarkPayoutPaid)
}
