// Package api는 포트폴리오 기능을 HTTP로 노출합니다
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/market"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/assist-by/portfolio/internal/trading"
	"github.com/assist-by/portfolio/internal/valuation"
	"github.com/assist-by/portfolio/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestTimeout      = 30 * time.Second
	requestIDHeaderKey  = "X-Request-ID"
	requestIDContextKey = "request_id"
)

// Services는 HTTP 핸들러가 사용하는 핵심 구성요소입니다
type Services struct {
	DB             storage.DB
	Engine         trading.Executor
	Wallet         *wallet.Account
	Book           *ledger.Book
	Valuation      *valuation.Aggregator
	Prices         *market.Cache
	Assets         storage.AssetRegistry
	CandleInterval domain.TimeInterval
}

// Server는 gin 라우터와 핸들러 의존성을 묶습니다
type Server struct {
	R      *gin.Engine
	svc    Services
	logger *zap.Logger
}

// NewServer는 라우터와 미들웨어를 구성합니다
func NewServer(svc Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.CandleInterval == "" {
		svc.CandleInterval = domain.Interval1h
	}

	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(requestID())
	g.Use(requestLogger(logger))
	g.Use(gin.Recovery())

	s := &Server{R: g, svc: svc, logger: logger}

	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := g.Group("/api")
	api.POST("/trades", s.executeTrade)

	users := api.Group("/users/:user_id")
	users.POST("/open", s.openAccount)
	users.POST("/deposit", s.deposit)
	users.GET("/balance", s.getBalance)
	users.POST("/buy", s.buy)
	users.POST("/sell", s.sell)
	users.GET("/summary", s.getSummary)
	users.GET("/pnl", s.getPnL)
	users.GET("/transactions", s.getTransactions)

	api.GET("/prices", s.getLatestPrices)
	api.GET("/prices/:symbol", s.getCurrentPrice)
	api.GET("/prices/:symbol/market", s.getMarketPrice)
	api.GET("/prices/:symbol/history", s.getHistory)
	api.POST("/prices/:symbol/ingest", s.ingest)

	api.GET("/assets", s.listAssets)
	api.POST("/assets", s.upsertAsset)
	api.PUT("/assets/:symbol/active", s.setAssetActive)

	return s
}

// Run은 ctx가 취소될 때까지 HTTP 서버를 실행합니다
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.R,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeaderKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeaderKey, id)
		c.Set(requestIDContextKey, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
