package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/assist-by/portfolio/internal/notification"
)

var _ notification.Notifier = (*Client)(nil)

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := newEmbed("에러 발생", fmt.Sprintf("```%v```", err), notification.ColorError, time.Now())
	return c.sendToWebhook(c.errorWebhook, embed.message())
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := newEmbed("", message, notification.ColorInfo, time.Now())
	return c.sendToWebhook(c.infoWebhook, embed.message())
}

// SendTradeInfo는 거래 체결 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	embed := newEmbed(
		fmt.Sprintf("거래 체결: %s %s", strings.ToUpper(string(info.TradeType)), info.Symbol),
		fmt.Sprintf("**사용자**: %d", info.UserID),
		notification.GetColorForTrade(info.TradeType),
		time.Now(),
	).
		field("수량", info.Quantity.String()).
		field("가격", notification.FormatQuote(info.Price)).
		field("순액", notification.FormatQuote(info.NetValue)).
		field("수수료", info.Fee.StringFixed(8)).
		field("잔고", notification.FormatQuote(info.Balance))

	return c.sendToWebhook(c.tradeWebhook, embed.message())
}
