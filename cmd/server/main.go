package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/pharma-dms/internal/config"
	dmsentity "github.com/bitfantasy/pharma-dms/internal/dms/entity"
	dmshandler "github.com/bitfantasy/pharma-dms/internal/dms/handler"
	dmsrepo "github.com/bitfantasy/pharma-dms/internal/dms/repository"
	dmsservice "github.com/bitfantasy/pharma-dms/internal/dms/service"
	"github.com/bitfantasy/pharma-dms/internal/middleware"
	"github.com/bitfantasy/pharma-dms/internal/shared/notify"
	wfentity "github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	wfhandler "github.com/bitfantasy/pharma-dms/internal/workflow/handler"
	wfrepo "github.com/bitfantasy/pharma-dms/internal/workflow/repository"
	wfservice "github.com/bitfantasy/pharma-dms/internal/workflow/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting pharma-dms service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 迁移表结构
	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis（不可用时阶段缓存静默回源，不影响启动）
	rdb := initRedis(cfg.Redis)

	// 工作流引擎依赖
	wfRepos := wfrepo.NewRepositories(db)
	dmsRepos := dmsrepo.NewRepositories(db)
	stages := wfrepo.NewCachedStageStore(wfRepos.Stage, rdb, zapLogger)

	stageSvc := wfservice.NewStageService(stages, wfRepos.Transition, wfRepos.Permission, dmsRepos.EntityStage, zapLogger)
	transitionSvc := wfservice.NewTransitionService(wfRepos.Transition, stages, zapLogger)
	grantSvc := wfservice.NewStagePermissionService(wfRepos.StagePermission, stages, wfRepos.Permission, dmsRepos.User, zapLogger)
	engine := wfservice.NewWorkflowService(
		stages,
		wfRepos.Transition,
		grantSvc,
		wfRepos.History,
		dmsRepos.EntityStage,
		wfservice.NewZapAuditSink(zapLogger),
		notify.NewNotifier(cfg.Notify.WebhookURL, zapLogger),
		zapLogger,
	)

	// 默认工作流种子（幂等，重启安全）
	seeder := dmsservice.NewSeeder(stageSvc, transitionSvc, stages, wfRepos.Transition, wfRepos.Permission, zapLogger)
	if err := seeder.Seed(context.Background()); err != nil {
		zapLogger.Fatal("Failed to seed default workflow", zap.Error(err))
	}

	// 业务依赖
	services := dmsservice.NewServices(dmsRepos, engine, stages, zapLogger)
	dmsHandlers := dmshandler.NewHandlers(services)
	wfHandlers := wfhandler.NewHandlers(stageSvc, transitionSvc, grantSvc, engine)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	// 注册路由
	registerRoutes(router, wfHandlers, dmsHandlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 工作流
		&wfentity.Permission{},
		&wfentity.WorkflowStage{},
		&wfentity.WorkflowTransition{},
		&wfentity.StagePermission{},
		&wfentity.WorkflowHistory{},
		// 主数据
		&dmsentity.User{},
		&dmsentity.Hospital{},
		&dmsentity.Doctor{},
		&dmsentity.Principal{},
		&dmsentity.Product{},
		// 业务单据
		&dmsentity.PurchaseOrder{},
		&dmsentity.POItem{},
		&dmsentity.InvoiceReceiving{},
		&dmsentity.InvoiceReceivingItem{},
		&dmsentity.QualityControl{},
		&dmsentity.Warehouse{},
		&dmsentity.WarehouseApproval{},
		&dmsentity.Inventory{},
		&dmsentity.InventoryMovement{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, wf *wfhandler.Handlers, h *dmshandler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 工作流配置与引擎
			workflow := authorized.Group("/workflow")
			{
				// 配置面走粗粒度管理权限；引擎面由阶段授权兜底
				admin := workflow.Group("", middleware.RequirePermission("workflow.manage"))
				{
					// 阶段登记表
					admin.GET("/stages", wf.Stage.ListStages)
					admin.POST("/stages", wf.Stage.CreateStage)
					admin.GET("/stages/:id", wf.Stage.GetStage)
					admin.PUT("/stages/:id", wf.Stage.UpdateStage)
					admin.DELETE("/stages/:id", wf.Stage.DeleteStage)
					admin.POST("/stages/reorder", wf.Stage.ReorderStages)
					admin.POST("/stages/:id/clone", wf.Stage.CloneStage)
					admin.GET("/stages/:id/permissions", wf.StagePermission.ListByStage)

					// 迁移规则表
					admin.GET("/transitions", wf.Transition.ListTransitions)
					admin.POST("/transitions", wf.Transition.CreateTransition)
					admin.PUT("/transitions/:id", wf.Transition.UpdateTransition)
					admin.DELETE("/transitions/:id", wf.Transition.DeleteTransition)

					// 阶段授权
					admin.POST("/stage-permissions", wf.StagePermission.Assign)
					admin.POST("/stage-permissions/bulk", wf.StagePermission.BulkAssign)
					admin.POST("/stage-permissions/revoke", wf.StagePermission.Revoke)
					admin.GET("/stage-permissions/active", wf.StagePermission.GetActivePermissions)
					admin.GET("/stage-permissions/can-perform", wf.StagePermission.CanPerformAction)
					admin.GET("/users/:userId/stage-permissions", wf.StagePermission.ListByUser)
				}

				// 引擎
				workflow.POST("/execute", wf.Workflow.ExecuteTransition)
				workflow.POST("/validate", wf.Workflow.ValidateAction)
				workflow.GET("/history/:entityType/:entityId", wf.Workflow.GetHistory)
				workflow.GET("/visualization", wf.Workflow.GetVisualization)
			}

			// 主数据
			hospitals := authorized.Group("/hospitals")
			{
				hospitals.GET("", h.Master.ListHospitals)
				hospitals.POST("", h.Master.CreateHospital)
				hospitals.GET("/:id", h.Master.GetHospital)
				hospitals.PUT("/:id", h.Master.UpdateHospital)
			}

			doctors := authorized.Group("/doctors")
			{
				doctors.GET("", h.Master.ListDoctors)
				doctors.POST("", h.Master.CreateDoctor)
				doctors.GET("/:id", h.Master.GetDoctor)
				doctors.PUT("/:id", h.Master.UpdateDoctor)
			}

			principals := authorized.Group("/principals")
			{
				principals.GET("", h.Master.ListPrincipals)
				principals.POST("", h.Master.CreatePrincipal)
				principals.GET("/:id", h.Master.GetPrincipal)
				principals.PUT("/:id", h.Master.UpdatePrincipal)
			}

			products := authorized.Group("/products")
			{
				products.GET("", h.Master.ListProducts)
				products.POST("", h.Master.CreateProduct)
				products.GET("/:id", h.Master.GetProduct)
				products.PUT("/:id", h.Master.UpdateProduct)
			}

			// 采购订单
			pos := authorized.Group("/purchase-orders")
			{
				pos.GET("", h.PurchaseOrder.List)
				pos.POST("", h.PurchaseOrder.Create)
				pos.GET("/:id", h.PurchaseOrder.Get)
				pos.PUT("/:id", h.PurchaseOrder.Update)
				pos.POST("/:id/submit", h.PurchaseOrder.Submit)
				pos.POST("/:id/approve", h.PurchaseOrder.Approve)
				pos.POST("/:id/reject", h.PurchaseOrder.Reject)
				pos.POST("/:id/cancel", h.PurchaseOrder.Cancel)
			}

			// 发票收货
			receivings := authorized.Group("/invoice-receivings")
			{
				receivings.GET("", h.Receiving.List)
				receivings.POST("", h.Receiving.Create)
				receivings.GET("/:id", h.Receiving.Get)
				receivings.POST("/:id/receive", h.Receiving.Receive)
			}

			// 质检
			qcs := authorized.Group("/quality-controls")
			{
				qcs.GET("", h.QC.List)
				qcs.POST("", h.QC.Create)
				qcs.GET("/:id", h.QC.Get)
				qcs.POST("/:id/result", h.QC.RecordResult)
			}

			// 入库审批
			approvals := authorized.Group("/warehouse-approvals")
			{
				approvals.GET("", h.Warehouse.ListApprovals)
				approvals.POST("", h.Warehouse.CreateApproval)
				approvals.GET("/:id", h.Warehouse.GetApproval)
				approvals.POST("/:id/approve", h.Warehouse.Approve)
				approvals.POST("/:id/reject", h.Warehouse.Reject)
			}

			// 仓库
			warehouses := authorized.Group("/warehouses")
			{
				warehouses.GET("", h.Warehouse.ListWarehouses)
				warehouses.POST("", h.Warehouse.CreateWarehouse)
			}

			// 库存台账
			inventory := authorized.Group("/inventory")
			{
				inventory.GET("", h.Inventory.List)
				inventory.GET("/:id", h.Inventory.Get)
				inventory.POST("/adjust", h.Inventory.Adjust)
				inventory.POST("/reserve", h.Inventory.Reserve)
				inventory.POST("/release", h.Inventory.Release)
				inventory.POST("/utilize", h.Inventory.Utilize)
				inventory.POST("/transfer", h.Inventory.Transfer)
				inventory.GET("/movements", h.Inventory.ListMovements)
				inventory.GET("/movements/export", h.Inventory.ExportMovements)
			}
		}
	}
}
