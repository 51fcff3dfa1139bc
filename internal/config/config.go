package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	PolicyDegrade = "degrade"
	PolicyStrict  = "strict"
)

type Config struct {
	// 저장소 설정
	Database struct {
		URL     string `envconfig:"DATABASE_URL"`
		Storage string `envconfig:"STORAGE" default:"postgres"`
	}

	// HTTP 서버 설정
	HTTP struct {
		Port int `envconfig:"HTTP_PORT" default:"8080"`
	}

	// 거래 설정
	Trading struct {
		FeeRate           decimal.Decimal `envconfig:"FEE_RATE" default:"0.0001"`
		MinimumInvestment decimal.Decimal `envconfig:"MINIMUM_INVESTMENT" default:"10"`
		InitialBalance    decimal.Decimal `envconfig:"INITIAL_BALANCE" default:"10"`
		PriceTimeout      time.Duration   `envconfig:"PRICE_TIMEOUT" default:"3s"`
	}

	// 평가 설정
	Valuation struct {
		PricePolicy string `envconfig:"PNL_PRICE_POLICY" default:"degrade"`
	}

	// 시세 수집 설정
	Market struct {
		APIKey         string        `envconfig:"BINANCE_API_KEY"`
		SecretKey      string        `envconfig:"BINANCE_SECRET_KEY"`
		BaseURL        string        `envconfig:"BINANCE_BASE_URL" default:"https://api.binance.com"`
		StreamURL      string        `envconfig:"BINANCE_STREAM_URL" default:"wss://stream.binance.com:9443/stream"`
		StreamEnabled  bool          `envconfig:"STREAM_ENABLED" default:"false"`
		QuoteTTL       time.Duration `envconfig:"QUOTE_TTL" default:"5s"`
		FetchInterval  time.Duration `envconfig:"FETCH_INTERVAL" default:"15m"`
		CandleInterval string        `envconfig:"CANDLE_INTERVAL" default:"1h"`
	}

	// 거래 요청 스트림 설정 (브로커가 비어 있으면 사용하지 않음)
	Kafka struct {
		Brokers []string `envconfig:"KAFKA_BROKERS"`
		Topic   string   `envconfig:"KAFKA_TOPIC" default:"trade-requests"`
		GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"portfolio"`
	}

	// 디스코드 웹훅 설정 (비어 있으면 해당 알림을 보내지 않음)
	Discord struct {
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
	}
}

// CandleInterval은 수집 간격을 도메인 타입으로 반환합니다. ValidateConfig를 통과한 설정에서만 호출합니다.
func (c *Config) CandleInterval() domain.TimeInterval {
	return domain.TimeInterval(c.Market.CandleInterval)
}

// TradeStreamEnabled는 거래 요청 스트림을 구독할지 여부입니다
func (c *Config) TradeStreamEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	switch cfg.Database.Storage {
	case StoragePostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("STORAGE=postgres 이면 DATABASE_URL이 필요합니다")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE는 postgres 또는 memory 이어야 합니다: %q", cfg.Database.Storage)
	}

	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT 범위가 잘못되었습니다: %d", cfg.HTTP.Port)
	}

	if cfg.Trading.FeeRate.IsNegative() || cfg.Trading.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("FEE_RATE는 0 이상 1 미만이어야 합니다")
	}
	if !cfg.Trading.MinimumInvestment.IsPositive() {
		return fmt.Errorf("MINIMUM_INVESTMENT는 0보다 커야 합니다")
	}
	if cfg.Trading.InitialBalance.IsNegative() {
		return fmt.Errorf("INITIAL_BALANCE는 음수일 수 없습니다")
	}
	if cfg.Trading.PriceTimeout <= 0 {
		return fmt.Errorf("PRICE_TIMEOUT은 0보다 커야 합니다")
	}

	if cfg.Valuation.PricePolicy != PolicyDegrade && cfg.Valuation.PricePolicy != PolicyStrict {
		return fmt.Errorf("PNL_PRICE_POLICY는 degrade 또는 strict 이어야 합니다: %q", cfg.Valuation.PricePolicy)
	}

	if cfg.Market.FetchInterval < 1*time.Minute {
		return fmt.Errorf("FETCH_INTERVAL은 1분 이상이어야 합니다")
	}
	if _, err := domain.ParseTimeInterval(cfg.Market.CandleInterval); err != nil {
		return fmt.Errorf("CANDLE_INTERVAL: %w", err)
	}
	if cfg.Market.QuoteTTL < 0 {
		return fmt.Errorf("QUOTE_TTL은 음수일 수 없습니다")
	}

	if cfg.TradeStreamEnabled() && cfg.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_BROKERS를 지정하면 KAFKA_TOPIC이 필요합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
// .env 파일이 있으면 먼저 읽고, 이미 설정된 환경변수는 덮어쓰지 않습니다.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
