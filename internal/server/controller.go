package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"styleswap/internal/account"
	"styleswap/internal/affiliate"
	"styleswap/internal/api"
	"styleswap/internal/api/middleware"
	"styleswap/internal/notify"
	"styleswap/internal/session"
	"styleswap/internal/settings"
	"styleswap/internal/store"
	"styleswap/internal/styleswap"
	"styleswap/internal/supabase"
	"styleswap/internal/tasks"
	"styleswap/internal/worker"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

// Services wires the handlers' dependencies from the shared connections.
func Services(conn *styleswap.App, pool *worker.Pool, config Config, log *zap.Logger) (*api.App, error) {
	idp, err := supabase.New(supabase.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	repo := store.NewGormStore(conn.Db)
	notifier := notify.New(pool, conn.Rdb, nil, log)
	return &api.App{
		Accounts:   account.NewService(idp, repo, session.NewCache(conn.Rdb, session.DefaultTTL), config.Origin, log),
		Affiliates: affiliate.NewService(repo, notifier, log),
		Settings:   settings.NewService(repo, conn.Rdb, log),
		Orders:     repo,
		Accruals:   tasks.NewEnqueuer(conn.Aqc),
		FailedAccruals: func() ([]tasks.FailedAccrual, error) {
			return tasks.FailedAccruals(conn.Aqi)
		},
		Origin:        config.Origin,
		WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		Admin: api.AdminCredentials{
			Username:     os.Getenv("ADMIN_USERNAME"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Log: log,
	}, nil
}

// NewRouter builds the HTTP API. limiter may be nil to disable rate limiting.
func NewRouter(app *api.App, rdb *redis.Client, limiter gin.HandlerFunc, config Config) *gin.Engine {
	// @title StyleSwap Backend
	// @version 0.1
	// @description StyleSwap: accounts, Partner Program & payments REST API and WebSocket server
	// @BasePath /
	// @schemes http https ws wss
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	mw := limiter
	router := gin.New()
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(cors.New(cors.Config{
		AllowOrigins:  config.CorsOrigins,
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS", "PUT", "DELETE"},
		MaxAge:        24 * time.Hour,
	}))
	router.Use(middleware.Metrics())
	router.Use(func(c *gin.Context) {
		c.Set("app", app)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	ws := wsHandler(rdb)
	router.GET("/ws", mw, ws)
	router.GET("/ws/", mw, ws)
	auth := router.Group("/auth/")
	{
		auth.POST("/signup", mw, api.SignUp)
		auth.POST("/signup/", mw, api.SignUp)
		auth.POST("/login", mw, api.Login)
		auth.POST("/login/", mw, api.Login)
		auth.POST("/reset-password", mw, api.ResetPassword)
		auth.POST("/reset-password/", mw, api.ResetPassword)
	}
	signedIn := router.Group("/auth/").Use(middleware.Auth())
	{
		signedIn.GET("/session", mw, api.RestoreSession)
		signedIn.GET("/session/", mw, api.RestoreSession)
		signedIn.POST("/logout", mw, api.Logout)
		signedIn.POST("/logout/", mw, api.Logout)
		signedIn.PUT("/password", mw, api.UpdatePassword)
		signedIn.PUT("/password/", mw, api.UpdatePassword)
	}
	users := router.Group("/users/").Use(middleware.Auth())
	{
		users.GET("/me", mw, api.GetUser)
		users.GET("/me/", mw, api.GetUser)
		users.POST("/me/refresh", mw, api.RefreshUser)
		users.POST("/me/refresh/", mw, api.RefreshUser)
		users.GET("/orders", mw, api.GetOrders)
		users.GET("/orders/", mw, api.GetOrders)
		users.POST("/orders", mw, api.CreateOrder)
		users.POST("/orders/", mw, api.CreateOrder)
		users.GET("/affiliate", mw, api.GetAffiliate)
		users.GET("/affiliate/", mw, api.GetAffiliate)
		users.POST("/affiliate", mw, api.JoinAffiliate)
		users.POST("/affiliate/", mw, api.JoinAffiliate)
		users.GET("/affiliate/commissions", mw, api.GetCommissions)
		users.GET("/affiliate/commissions/", mw, api.GetCommissions)
		users.POST("/affiliate/payout", mw, api.RequestPayout)
		users.POST("/affiliate/payout/", mw, api.RequestPayout)
	}
	router.POST("/admin/login", mw, api.AdminLogin)
	router.POST("/admin/login/", mw, api.AdminLogin)
	admin := router.Group("/admin/").Use(middleware.AdminOnly())
	{
		admin.GET("/settings/affiliate", api.GetAffiliateSettings)
		admin.GET("/settings/affiliate/", api.GetAffiliateSettings)
		admin.PUT("/settings/affiliate", api.UpdateAffiliateSettings)
		admin.PUT("/settings/affiliate/", api.UpdateAffiliateSettings)
		admin.GET("/affiliates", api.ListAffiliates)
		admin.GET("/affiliates/", api.ListAffiliates)
		admin.POST("/affiliates", api.AddAffiliate)
		admin.POST("/affiliates/", api.AddAffiliate)
		admin.POST("/commissions/:id/paid", api.MarkCommissionPaid)
		admin.POST("/commissions/:id/paid/", api.MarkCommissionPaid)
		admin.GET("/accruals/failed", api.GetFailedAccruals)
		admin.GET("/accruals/failed/", api.GetFailedAccruals)
	}
	router.POST("/payments/razorpay/webhook", api.RazorpayWebhook)
	router.POST("/payments/razorpay/webhook/", api.RazorpayWebhook)
	return router
}

// RateLimiter limits each IP to config.RateLimit requests per second, counted
// in Redis so every API instance shares the budget.
func RateLimiter(config Config) gin.HandlerFunc {
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       1,
		}),
		Rate:  time.Second,
		Limit: config.RateLimit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})
}

// ApiInit runs the API server until it fails.
func ApiInit(config Config, log *zap.Logger) error {
	conn, err := styleswap.Init()
	if err != nil {
		return err
	}
	defer conn.Aqc.Close()
	pool := worker.NewPool(config.WorkerSpeed, config.WorkerQueue)
	defer pool.Close()
	app, err := Services(conn, pool, config, log)
	if err != nil {
		return err
	}
	router := NewRouter(app, conn.Rdb, RateLimiter(config), config)
	addr := ":" + config.Port
	Logger.Info(fmt.Sprintf("StyleSwap backend is up and listening to %s", addr))
	log.Info("api listening", zap.String("addr", addr))
	if config.Ssl {
		err = router.RunTLS(addr, config.SslCert, config.SslKey)
	} else {
		err = router.Run(addr)
	}
	if err != nil {
		return fmt.Errorf("run api on %s: %w", addr, err)
	}
	return nil
}
