package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/diploma-portal/api/swagger"
	"github.com/noah-isme/diploma-portal/internal/middleware"
	"github.com/noah-isme/diploma-portal/internal/models"
	"github.com/noah-isme/diploma-portal/pkg/config"
)

func registerRoutes(r *gin.Engine, cfg *config.Config, app *application) {
	r.GET("/health", app.ops.Health)
	r.GET("/ready", app.ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", app.ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	cookie := cfg.Session.CookieName
	requireSession := middleware.RequireSession(app.sessions, cookie)
	authorityOnly := middleware.RequireRole(models.RoleAuthority)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", app.auth.Login)
	auth.POST("/logout", requireSession, app.auth.Logout)
	auth.GET("/me", requireSession, app.auth.Me)

	api.POST("/verify", app.verification.Verify)
	api.GET("/shared/:token", app.share.Shared)

	diplomas := api.Group("/diplomas")
	diplomas.GET("", middleware.OptionalSession(app.sessions, cookie), app.diplomas.List)
	diplomas.GET("/bulk/reports/:token", app.issuance.BulkReport)
	diplomas.POST("", requireSession, authorityOnly, app.issuance.Issue)
	diplomas.POST("/bulk", requireSession, authorityOnly, app.issuance.IssueBulk)
	diplomas.GET("/export", requireSession, authorityOnly, app.export.Export)

	record := diplomas.Group("/:id", requireSession)
	record.POST("/revoke", authorityOnly, app.diplomas.Revoke)
	record.GET("/audit", authorityOnly, app.audit.History)
	record.GET("/verification-file", app.diplomas.VerificationFile)
	record.GET("/pdf", app.diplomas.PDF)
	record.POST("/share", app.share.Share)
	record.GET("/qrcode", app.share.QRCode)
}
