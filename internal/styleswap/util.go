package styleswap

import (
	"strings"
)

const (
	MessageTargetSync       = "sync"
	MessageTargetCommission = "commission"
)

// WsResponseData is the payload pushed to a signed-in user's live channel
type WsResponseData struct {
	Target     string      `json:"target"` // Websocket message type: 'sync', 'commission'
	User       *User       `json:"user,omitempty"`
	Affiliate  *Affiliate  `json:"affiliate,omitempty"`
	Commission *Commission `json:"commission,omitempty"`
}

// Dashboard is the affiliate's view of their program membership.
type Dashboard struct {
	Affiliate   Affiliate      `json:"affiliate"`
	Link        string         `json:"link"`
	Commissions []Commission   `json:"commissions"`
	Stats       AffiliateStats `json:"stats"`
}

func NotificationChannel(userId string) string {
	return "notification_ch@" + userId
}

func EscapeMarkdownV2(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}
