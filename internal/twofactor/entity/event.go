package entity

import "time"

const (
	TwoFactorEnabledDestination  = "twofactor.enabled"
	TwoFactorDisabledDestination = "twofactor.disabled"
)

// TwoFactorEvent is published whenever an account changes its two-factor state.
type TwoFactorEvent struct {
	EventID    int64     `json:"event_id,string"`
	UserID     int64     `json:"user_id,string"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
