package domain

import "time"

// User is a member's linked web account.
type User struct {
	DiscordID string
	AccountID string
	Coins     int64
	LastDaily *time.Time
	CreatedAt time.Time
}

// LoginInfo is a single web login of a linked account.
type LoginInfo struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Location  string    `json:"location"`
	TimeZone  string    `json:"time_zone"`
	CreatedAt time.Time `json:"created_at"`
}
