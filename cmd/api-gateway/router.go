package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/barangay-api/api/swagger"
	"github.com/noah-isme/barangay-api/internal/handler"
	"github.com/noah-isme/barangay-api/internal/middleware"
	"github.com/noah-isme/barangay-api/internal/models"
	"github.com/noah-isme/barangay-api/internal/service"
	"github.com/noah-isme/barangay-api/pkg/config"
	"github.com/noah-isme/barangay-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/barangay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/barangay-api/pkg/middleware/requestid"
	"github.com/noah-isme/barangay-api/pkg/storage"
)

type services struct {
	auth         *service.AuthService
	approvals    *service.ApprovalService
	certificates *service.CertificateService
	issuance     *service.IssuanceService
	verification *service.VerificationService
	blotters     *service.BlotterService
	incidents    *service.IncidentService
	officials    *service.OfficialService
	metrics      *service.MetricsService
	audit        middleware.AuditWriter
	signatures   *storage.LocalStorage
}

func newRouter(cfg *config.Config, logr *zap.Logger, s services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(s.metrics))

	metricsHandler := handler.NewMetricsHandler(s.metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(s.auth)
	approvalHandler := handler.NewApprovalHandler(s.approvals)
	certificateHandler := handler.NewCertificateHandler(s.certificates, s.issuance)
	verificationHandler := handler.NewVerificationHandler(s.verification)
	blotterHandler := handler.NewBlotterHandler(s.blotters)
	incidentHandler := handler.NewIncidentHandler(s.incidents)
	officialHandler := handler.NewOfficialHandler(s.officials, s.signatures)

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(s.audit, logr, action, resource)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/verify/:code", verificationHandler.Verify)

	secured := api.Group("")
	secured.Use(middleware.JWT(s.auth))
	secured.GET("/auth/me", authHandler.Me)

	if cfg.Approvals.Enabled {
		approvals := secured.Group("/approvals")
		approvals.GET("", approvalHandler.List)
		approvals.GET("/export", approvalHandler.Export)
	}

	certificates := secured.Group("/certificates")
	certificates.GET("", certificateHandler.List)
	certificates.POST("", audit(models.AuditActionRecordCreate, "certificate_request"), certificateHandler.Create)
	certificates.GET("/:id", certificateHandler.Get)
	certificates.POST("/:id/approve", audit(models.AuditActionStatusChange, "certificate_request"), certificateHandler.Approve)
	certificates.POST("/:id/reject", audit(models.AuditActionStatusChange, "certificate_request"), certificateHandler.Reject)
	certificates.POST("/:id/release", audit(models.AuditActionCertificateIssue, "certificate_request"), certificateHandler.Release)

	issued := secured.Group("/issued-certificates")
	issued.GET("/:id", certificateHandler.GetIssued)
	issued.GET("/:id/document", certificateHandler.Document)
	issued.POST("/:id/revoke", audit(models.AuditActionCertificateRevoke, "issued_certificate"), certificateHandler.Revoke)

	blotters := secured.Group("/blotters")
	blotters.GET("", blotterHandler.List)
	blotters.POST("", audit(models.AuditActionRecordCreate, "blotter_case"), blotterHandler.Create)
	blotters.GET("/:id", blotterHandler.Get)
	blotters.PATCH("/:id/status", audit(models.AuditActionStatusChange, "blotter_case"), blotterHandler.UpdateStatus)
	blotters.POST("/:id/assign", audit(models.AuditActionStatusChange, "blotter_case"), blotterHandler.Assign)

	incidents := secured.Group("/incidents")
	incidents.GET("", incidentHandler.List)
	incidents.POST("", audit(models.AuditActionRecordCreate, "incident_report"), incidentHandler.Create)
	incidents.GET("/:id", incidentHandler.Get)
	incidents.PATCH("/:id/status", audit(models.AuditActionStatusChange, "incident_report"), incidentHandler.UpdateStatus)

	officials := secured.Group("/officials")
	officials.GET("", officialHandler.List)
	officials.GET("/:id", officialHandler.Get)
	managed := officials.Group("", middleware.RequireAuthority())
	managed.POST("", audit(models.AuditActionOfficialChange, "official"), officialHandler.Create)
	managed.PUT("/:id", audit(models.AuditActionOfficialChange, "official"), officialHandler.Update)
	managed.DELETE("/:id", audit(models.AuditActionOfficialChange, "official"), officialHandler.Deactivate)
	managed.POST("/:id/signature", audit(models.AuditActionOfficialChange, "official"), officialHandler.UploadSignature)

	return r
}
