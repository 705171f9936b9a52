package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	custommiddleware "goldtrade/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	DepositHandler *DepositHandler
	PriceHandler   *PriceHandler
	AdminHandler   *AdminHandler
	Auth           *custommiddleware.JWTAuth
	TradingGuard   *custommiddleware.TradingGuard
	Logger         *zap.Logger
	// BodyLimit caps request bodies, e.g. "1M". Slip uploads are capped by
	// DepositHandler instead so oversized images keep the slip response shape.
	BodyLimit string
}

const slipUploadPath = "/api/user/deposits/slip"

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Validator = NewValidator()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// long-lived stream
			return c.Path() == "/api/events"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				config.Logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			config.Logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == slipUploadPath
			},
			Limit: config.BodyLimit,
		}))
	}

	api := e.Group("/api")

	// Public
	auth := api.Group("/auth")
	{
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.POST("/register", config.AuthHandler.Register)
	}
	api.GET("/prices", config.PriceHandler.GetPrices)

	api.GET("/events", config.PriceHandler.Events, config.Auth.Middleware)

	user := api.Group("/user", config.Auth.Middleware)
	{
		user.GET("/me", config.UserHandler.GetMe)
		user.GET("/assets", config.UserHandler.GetAssets)
		user.GET("/transactions", config.UserHandler.GetTransactions)
		user.POST("/transactions", config.UserHandler.Trade, config.TradingGuard.Middleware)
		user.POST("/deposits/slip", config.DepositHandler.SubmitSlip)
		user.POST("/withdrawals", config.UserHandler.RequestWithdrawal)
		user.GET("/withdrawals", config.UserHandler.GetWithdrawals)
	}

	admin := api.Group("/admin", config.Auth.Middleware, custommiddleware.AdminMiddleware)
	{
		admin.GET("/stock", config.AdminHandler.GetStock)
		admin.POST("/stock", config.AdminHandler.AddStock)
		admin.GET("/stock/lots", config.AdminHandler.GetInventoryLots)
		admin.POST("/add-to-user", config.AdminHandler.AddToUser)
		admin.POST("/exchange", config.AdminHandler.Exchange)
		admin.POST("/jewelry-exchange", config.AdminHandler.JewelryExchange)
		admin.GET("/transactions", config.AdminHandler.GetTransactions)
		admin.POST("/transactions/:id/cancel", config.AdminHandler.CancelTransaction)
		admin.DELETE("/transactions/:id", config.AdminHandler.DeleteTransaction)
		admin.GET("/markup", config.AdminHandler.GetMarkup)
		admin.PUT("/markup", config.AdminHandler.UpdateMarkup)
		admin.PUT("/trading", config.AdminHandler.SetTrading)
		admin.GET("/withdrawals", config.AdminHandler.GetWithdrawals)
		admin.POST("/withdrawals/:id/approve", config.AdminHandler.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", config.AdminHandler.RejectWithdrawal)
		admin.GET("/users", config.AdminHandler.GetUsers)
		admin.PUT("/users/:id/deposit-limit", config.AdminHandler.SetUserDepositLimit)
		admin.GET("/deposit-limits", config.AdminHandler.GetDepositLimits)
		admin.POST("/deposit-limits", config.AdminHandler.CreateDepositLimit)
	}
}
