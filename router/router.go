package router

import (
	"fintrack/api"
	"fintrack/cache"
	"fintrack/config"
	_ "fintrack/docs"
	"fintrack/logger"
	"fintrack/middleware"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps 路由依赖的服务
type Deps struct {
	Config    *config.Config
	Tokens    *service.TokenService
	Analytics *service.AnalyticsService
	Alerter   *service.BudgetAlerter
	// Cache 为 nil 时不缓存
	Cache *cache.ResponseCache
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(logger.GinMiddleware(), middleware.ErrorHandler(), CORSMiddleware())
	r.NoRoute(middleware.NoRoute())

	uploads := api.NewUploader(cfg.Upload)
	r.Static("/uploads", uploads.Dir())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", api.Health)

	authenticate := middleware.Authenticate(deps.Tokens)
	cached := deps.Cache.Middleware()
	v1 := r.Group("/api")

	// 认证相关路由，同一限流计数
	authHandler := api.NewAuthHandler(cfg, deps.Tokens)
	limiter := middleware.AuthRateLimit()
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", limiter, authHandler.Signup)
		auth.POST("/login", limiter, authHandler.Login)
		auth.POST("/forgot-password", limiter, authHandler.ForgotPassword)
		auth.POST("/reset-password", limiter, authHandler.ResetPassword)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authenticate, authHandler.Logout)
		auth.GET("/me", authenticate, authHandler.Me)
	}

	// 需要登录的路由，写操作成功后使该用户的缓存失效
	authorized := v1.Group("")
	authorized.Use(authenticate, deps.Cache.Invalidate())
	{
		userHandler := api.NewUserHandler(uploads)
		users := authorized.Group("/users")
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.PUT("/email", userHandler.UpdateEmail)
			users.PUT("/password", userHandler.ChangePassword)
			users.POST("/profile/picture", userHandler.UploadProfilePicture)
			users.DELETE("/profile/picture", userHandler.DeleteProfilePicture)
		}

		expenseHandler := api.NewExpenseHandler(deps.Alerter, uploads)
		expenses := authorized.Group("/expenses")
		{
			expenses.GET("", expenseHandler.List)
			expenses.POST("", expenseHandler.Create)
			expenses.GET("/:id", expenseHandler.Get)
			expenses.PUT("/:id", expenseHandler.Update)
			expenses.DELETE("/:id", expenseHandler.Delete)
			expenses.POST("/:id/receipt", expenseHandler.UploadReceipt)
		}

		incomeHandler := api.NewIncomeHandler()
		incomes := authorized.Group("/incomes")
		{
			incomes.GET("", incomeHandler.List)
			incomes.POST("", incomeHandler.Create)
			incomes.GET("/:id", incomeHandler.Get)
			incomes.PUT("/:id", incomeHandler.Update)
			incomes.DELETE("/:id", incomeHandler.Delete)
		}

		categoryHandler := api.NewCategoryHandler()
		categories := authorized.Group("/categories")
		{
			categories.GET("", categoryHandler.List)
			categories.POST("", categoryHandler.Create)
			categories.GET("/:id", categoryHandler.Get)
			categories.PUT("/:id", categoryHandler.Update)
			categories.DELETE("/:id", categoryHandler.Delete)
		}

		budgetHandler := api.NewBudgetHandler()
		budgets := authorized.Group("/budgets")
		{
			budgets.GET("", budgetHandler.List)
			budgets.GET("/current", budgetHandler.Current)
			budgets.GET("/:year/:month", budgetHandler.GetByPeriod)
			budgets.POST("", budgetHandler.Create)
			budgets.PUT("/:id", budgetHandler.Update)
			budgets.DELETE("/:id", budgetHandler.Delete)
		}

		analyticsHandler := api.NewAnalyticsHandler(deps.Analytics)
		analytics := authorized.Group("/analytics", cached)
		{
			analytics.GET("/summary", analyticsHandler.Summary)
			analytics.GET("/trends", analyticsHandler.Trends)
			analytics.GET("/yearly", analyticsHandler.Yearly)
			analytics.GET("/daily", analyticsHandler.Daily)
		}

		exportHandler := api.NewExportHandler()
		export := authorized.Group("/export")
		{
			export.GET("/csv", exportHandler.ExportCSV)
			export.GET("/pdf", exportHandler.ExportPDF)
			export.GET("/excel", exportHandler.ExportExcel)
			export.GET("/report", cached, exportHandler.Report)
		}
	}

	// 后台管理
	adminHandler := api.NewAdminHandler()
	admin := v1.Group("/admin", authenticate, middleware.RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.PUT("/users/:id/block", adminHandler.ToggleBlock)
		admin.GET("/stats", adminHandler.Stats)
	}

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Cache")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
