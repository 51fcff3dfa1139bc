package domain

import "fmt"

// Error 타입들은 거래와 시세 처리 중 발생할 수 있는 에러 종류를 정의합니다
var (
	ErrInvalidRequest       = fmt.Errorf("잘못된 요청입니다")
	ErrBelowMinimum         = fmt.Errorf("최소 투자 금액보다 작습니다")
	ErrInsufficientFunds    = fmt.Errorf("잔고가 부족합니다")
	ErrInsufficientQuantity = fmt.Errorf("보유 수량이 부족합니다")
	ErrNoPosition           = fmt.Errorf("해당 자산의 포지션이 없습니다")
	ErrPriceUnavailable     = fmt.Errorf("현재 가격을 확인할 수 없습니다")
	ErrMarket               = fmt.Errorf("시세 조회에 실패했습니다")
	ErrIngestion            = fmt.Errorf("시세 수집에 실패했습니다")
)

// TradeError는 거래 에러에 심볼과 작업 정보를 덧붙인 구조체입니다
type TradeError struct {
	Symbol string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *TradeError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("거래 에러 [%s, 작업: %s]: %v", e.Symbol, e.Op, e.Err)
	}
	return fmt.Sprintf("거래 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError는 새로운 TradeError를 생성합니다
func NewTradeError(symbol, op string, err error) *TradeError {
	return &TradeError{
		Symbol: symbol,
		Op:     op,
		Err:    err,
	}
}

// ValidationError는 요청 필드 검증 실패를 나타냅니다. 항상 ErrInvalidRequest로 풀립니다.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
