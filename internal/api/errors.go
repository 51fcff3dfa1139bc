package api

import (
	"errors"
	"net/http"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify는 도메인 에러를 HTTP 상태와 에러 코드로 변환합니다
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrBelowMinimum):
		return http.StatusUnprocessableEntity, "below_minimum"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return http.StatusConflict, "insufficient_quantity"
	case errors.Is(err, domain.ErrNoPosition):
		return http.StatusConflict, "no_position"
	case errors.Is(err, domain.ErrPriceUnavailable):
		return http.StatusServiceUnavailable, "price_unavailable"
	case errors.Is(err, domain.ErrMarket):
		return http.StatusBadGateway, "market_error"
	case errors.Is(err, domain.ErrIngestion):
		return http.StatusInternalServerError, "ingestion_failed"
	case errors.Is(err, storage.ErrAssetNotFound):
		return http.StatusNotFound, "asset_not_found"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

func (s *Server) fail(c *gin.Context, where string, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && code == "internal_server_error" {
		s.logger.Error("internal_error",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("where", where),
			zap.Error(err))
		msg = "internal server error"
	}
	c.JSON(status, apiError{Code: code, Message: msg})
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: msg})
}
