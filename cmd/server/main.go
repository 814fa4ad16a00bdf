package main

import (
	// Standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/houzhh15/plantrack/cmd/server/internal/api"
	"github.com/houzhh15/plantrack/cmd/server/internal/audit"
	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/config"
	"github.com/houzhh15/plantrack/cmd/server/internal/directory"
	"github.com/houzhh15/plantrack/cmd/server/internal/execution"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/middleware"
	"github.com/houzhh15/plantrack/cmd/server/internal/services"
	"github.com/houzhh15/plantrack/pkg/logger"
)

func main() {
	logInstance, err := logger.Init(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENV"),
		WithSource:  !strings.EqualFold(os.Getenv("ENV"), "prod"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "plan-server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load product catalog
	catalogStore := catalog.NewStore()
	if count, err := catalogStore.LoadFile(cfg.Data.CatalogFile); err != nil {
		appLogger.Error("catalog load failed", "file", cfg.Data.CatalogFile, "error", err)
		os.Exit(1)
	} else {
		appLogger.Info("catalog loaded", "file", cfg.Data.CatalogFile, "products", count)
	}

	// Load execution ledger (missing file degrades to all-zero lookups)
	executionSource := execution.NewMemorySource()
	if count, err := executionSource.LoadFile(cfg.Data.ExecutionFile); err != nil {
		appLogger.Error("execution ledger load failed", "file", cfg.Data.ExecutionFile, "error", err)
		os.Exit(1)
	} else {
		appLogger.Info("execution ledger loaded", "file", cfg.Data.ExecutionFile, "entries", count)
	}

	// Load department directory
	dir, deptCount, err := directory.LoadFile(cfg.Data.DepartmentsFile)
	if err != nil {
		appLogger.Error("departments load failed", "file", cfg.Data.DepartmentsFile, "error", err)
		os.Exit(1)
	}
	appLogger.Info("departments loaded", "file", cfg.Data.DepartmentsFile, "departments", deptCount)

	// Initialize activity ledger
	activityLedger := ledger.NewLedger(catalogStore, ledger.NewMemoryRepository())

	// Initialize engine services
	resolver := services.NewResolverService(activityLedger)
	budgetService := services.NewBudgetService(executionSource)
	resultCache := services.NewResultCache(time.Duration(cfg.Engine.CacheTTLSeconds) * time.Second)
	analyticsService := services.NewAnalyticsService(catalogStore, resolver, dir, resultCache)

	// 台账每次变更成功后失效覆盖该产品的缓存条目
	activityLedger.OnMutate(resultCache.InvalidateProduct)
	appLogger.Info("engine services ready", "cache_ttl_seconds", cfg.Engine.CacheTTLSeconds)

	// Initialize audit logger
	auditLogger := audit.NewMutationLogger(cfg.Data.AuditLogsDir)
	appLogger.Info("audit logger ready", "dir", cfg.Data.AuditLogsDir)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Security.CORSAllowedOrigins))

	// Health and metrics endpoints
	startTime := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"env":            cfg.Server.Env,
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"products":       catalogStore.Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupRoutes(r, catalogStore, executionSource, activityLedger, resolver, budgetService, analyticsService, resultCache, auditLogger, cfg)

	// Create HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}

func setupRoutes(r *gin.Engine, catalogStore *catalog.Store, executionSource *execution.MemorySource, activityLedger *ledger.Ledger, resolver services.ResolverService, budgetService services.BudgetService, analyticsService services.AnalyticsService, resultCache *services.ResultCache, auditLogger *audit.MutationLogger, cfg *config.Config) {
	// ========== Product Catalog ==========
	r.GET("/api/v1/products", api.HandleListProducts(catalogStore))
	r.GET("/api/v1/products/:code", api.HandleGetProduct(catalogStore))
	r.PUT("/api/v1/products/:code/department", api.HandleAssignDepartment(catalogStore, resultCache, auditLogger))

	// ========== Progress & Budget ==========
	r.GET("/api/v1/products/:code/progress", api.HandleGetProductProgress(catalogStore, resolver))
	r.GET("/api/v1/products/:code/budget", api.HandleGetProductBudget(catalogStore, budgetService))
	r.POST("/api/v1/products/:code/validate-commit", api.HandleValidateCommit(catalogStore, activityLedger))

	// ========== Activity Ledger ==========
	r.GET("/api/v1/products/:code/activities", api.HandleListActivities(activityLedger))
	r.POST("/api/v1/products/:code/activities", api.HandleCreateActivity(activityLedger, auditLogger))
	r.GET("/api/v1/activities/:id", api.HandleGetActivity(activityLedger))
	r.PUT("/api/v1/activities/:id", api.HandleUpdateActivity(activityLedger, auditLogger))
	r.DELETE("/api/v1/activities/:id", api.HandleDeleteActivity(activityLedger, auditLogger))
	r.POST("/api/v1/activities/:id/evidence", api.HandleAttachEvidence(activityLedger, auditLogger))

	// ========== Analytics ==========
	r.GET("/api/v1/analytics/report", api.HandleAnalyticsReport(analyticsService))
	r.POST("/api/v1/analytics/refresh", api.HandleRefreshAnalytics(analyticsService, auditLogger))

	// ========== Admin ==========
	// 重新装载目录与执行台账，并清空结果缓存
	r.POST("/api/v1/admin/reload", func(c *gin.Context) {
		products, err := catalogStore.LoadFile(cfg.Data.CatalogFile)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{
				"code":    "RELOAD_FAILED",
				"message": err.Error(),
			}})
			return
		}
		entries, err := executionSource.LoadFile(cfg.Data.ExecutionFile)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{
				"code":    "RELOAD_FAILED",
				"message": err.Error(),
			}})
			return
		}
		analyticsService.Refresh()
		auditLogger.LogMutation("system", audit.ActionReloadData, "", 0, nil)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"reloaded":  true,
			"products":  products,
			"execution": entries,
		}})
	})
}
