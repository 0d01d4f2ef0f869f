// Package notify はユーザー登録時のウェルカム通知を非同期で処理します。
package notify

import "time"

// Status は通知の配信状態を表します。
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "error"
)

// KindWelcome は登録完了時のウェルカム通知です。
const KindWelcome = "welcome"

// Record は通知の配信記録を表します。
type Record struct {
	NotificationID string    `json:"notificationId"`
	UserID         string    `json:"userId"`
	Kind           string    `json:"kind"`
	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}
