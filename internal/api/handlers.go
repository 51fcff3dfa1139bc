package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

type priceResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type ingestResponse struct {
	Symbol   string              `json:"symbol"`
	Interval domain.TimeInterval `json:"interval"`
	Written  int                 `json:"written"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseLimit(v string, def, min, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

func withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// --- Trades ---

func (s *Server) executeTrade(c *gin.Context) {
	var msg domain.TradeMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	if msg.UserID <= 0 {
		s.badRequest(c, "user_id must be positive")
		return
	}
	req, err := msg.Request()
	if err != nil {
		s.fail(c, "executeTrade", err)
		return
	}
	s.execute(c, msg.UserID, req)
}

func (s *Server) buy(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	var req domain.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	s.execute(c, uid, req)
}

func (s *Server) sell(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	var req domain.SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	s.execute(c, uid, req)
}

func (s *Server) execute(c *gin.Context, uid int64, req domain.TradeRequest) {
	ctx, cancel := withTimeout(c)
	defer cancel()

	entry, err := s.svc.Engine.Execute(ctx, uid, req)
	if err != nil {
		s.fail(c, "execute", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// --- Wallet ---

func (s *Server) openAccount(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	acct, err := s.svc.Wallet.Open(ctx, s.svc.DB, uid)
	if err != nil {
		s.fail(c, "openAccount", err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (s *Server) deposit(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	balance, err := s.svc.Wallet.Deposit(ctx, s.svc.DB, uid, req.Amount)
	if err != nil {
		s.fail(c, "deposit", err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{UserID: uid, Balance: balance})
}

func (s *Server) getBalance(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	balance, err := s.svc.Valuation.Balance(ctx, uid)
	if err != nil {
		s.fail(c, "getBalance", err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{UserID: uid, Balance: balance})
}

// --- Valuation ---

func (s *Server) getSummary(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := s.svc.Valuation.Summary(ctx, uid)
	if err != nil {
		s.fail(c, "getSummary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) getPnL(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := s.svc.Valuation.PnL(ctx, uid)
	if err != nil {
		s.fail(c, "getPnL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) getTransactions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		s.badRequest(c, "invalid user_id")
		return
	}
	limit := parseLimit(c.Query("limit"), ledger.DefaultHistoryLimit, 1, 1000)
	ctx, cancel := withTimeout(c)
	defer cancel()

	var rows []domain.LedgerEntry
	err := s.svc.DB.View(ctx, func(tx storage.Tx) error {
		var err error
		rows, err = s.svc.Book.Transactions(ctx, tx, uid, limit)
		return err
	})
	if err != nil {
		s.fail(c, "getTransactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// --- Prices ---

func (s *Server) getCurrentPrice(c *gin.Context) {
	ctx, cancel := withTimeout(c)
	defer cancel()

	symbol := domain.PairSymbol(c.Param("symbol"))
	price, err := s.svc.Prices.CurrentPrice(ctx, symbol)
	if err != nil {
		s.fail(c, "getCurrentPrice", err)
		return
	}
	c.JSON(http.StatusOK, priceResponse{Symbol: symbol, Price: price})
}

func (s *Server) getMarketPrice(c *gin.Context) {
	ctx, cancel := withTimeout(c)
	defer cancel()

	symbol := domain.PairSymbol(c.Param("symbol"))
	price, err := s.svc.Prices.MarketPrice(ctx, symbol)
	if err != nil {
		s.fail(c, "getMarketPrice", err)
		return
	}
	c.JSON(http.StatusOK, priceResponse{Symbol: symbol, Price: price})
}

func (s *Server) getLatestPrices(c *gin.Context) {
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := s.svc.Prices.LatestPrices(ctx)
	if err != nil {
		s.fail(c, "getLatestPrices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) interval(c *gin.Context) (domain.TimeInterval, error) {
	v := c.Query("interval")
	if v == "" {
		return s.svc.CandleInterval, nil
	}
	return domain.ParseTimeInterval(v)
}

func parseTime(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 시각은 RFC3339 형식이어야 합니다: %q", domain.ErrInvalidRequest, v)
	}
	return t, nil
}

func (s *Server) getHistory(c *gin.Context) {
	interval, err := s.interval(c)
	if err != nil {
		s.fail(c, "getHistory", err)
		return
	}
	now := time.Now().UTC()
	from, err := parseTime(c.Query("from"), now.Add(-24*time.Hour))
	if err != nil {
		s.fail(c, "getHistory", err)
		return
	}
	to, err := parseTime(c.Query("to"), now)
	if err != nil {
		s.fail(c, "getHistory", err)
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := s.svc.Prices.History(ctx, c.Param("symbol"), interval, from, to)
	if err != nil {
		s.fail(c, "getHistory", err)
		return
	}

	// resample을 지정하면 더 긴 간격으로 묶어서 반환
	if v := c.Query("resample"); v != "" {
		target, err := domain.ParseTimeInterval(v)
		if err != nil {
			s.fail(c, "getHistory", err)
			return
		}
		rows, err = domain.Resample(rows, target)
		if err != nil {
			s.fail(c, "getHistory", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) ingest(c *gin.Context) {
	interval, err := s.interval(c)
	if err != nil {
		s.fail(c, "ingest", err)
		return
	}
	var since *time.Time
	if v := c.Query("since"); v != "" {
		t, err := parseTime(v, time.Time{})
		if err != nil {
			s.fail(c, "ingest", err)
			return
		}
		since = &t
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	symbol := domain.PairSymbol(c.Param("symbol"))
	n, err := s.svc.Prices.Ingest(ctx, symbol, interval, since)
	if err != nil {
		s.fail(c, "ingest", err)
		return
	}
	c.JSON(http.StatusOK, ingestResponse{Symbol: symbol, Interval: interval, Written: n})
}

// --- Assets ---

func (s *Server) listAssets(c *gin.Context) {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var (
		rows []domain.Asset
		err  error
	)
	if c.Query("active") == "true" {
		rows, err = s.svc.Assets.ActiveAssets(ctx)
	} else {
		rows, err = s.svc.Assets.Assets(ctx)
	}
	if err != nil {
		s.fail(c, "listAssets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) upsertAsset(c *gin.Context) {
	var a domain.Asset
	if err := c.ShouldBindJSON(&a); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}
	a.Symbol = domain.BaseSymbol(a.Symbol)
	if a.Symbol == "" {
		s.badRequest(c, "symbol is required")
		return
	}
	if strings.TrimSpace(a.Name) == "" {
		a.Name = a.Symbol
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.svc.Assets.UpsertAsset(ctx, a); err != nil {
		s.fail(c, "upsertAsset", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) setAssetActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	symbol := domain.BaseSymbol(c.Param("symbol"))
	if err := s.svc.Assets.SetActive(ctx, symbol, req.Active); err != nil {
		s.fail(c, "setAssetActive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "active": req.Active})
}
