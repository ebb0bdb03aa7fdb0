package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MaxUserAgentLen caps the stored user agent string.
const MaxUserAgentLen = 500

// SessionRecord is the server-side authority on a signed-in customer. The
// cookie only carries the token; a request is authenticated when its token
// resolves to a row owned by the cookie's customer.
type SessionRecord struct {
	Token      string       `gorm:"primaryKey;size:64" json:"token"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	LastSeenAt time.Time    `gorm:"not null;index" json:"last_seen_at"`
	IPAddress  string       `gorm:"size:64" json:"ip_address"`
	UserAgent  string       `gorm:"size:500" json:"user_agent"`
}

func (SessionRecord) TableName() string { return "sessions" }

// ActiveSession is a session row joined with its owner for the admin view.
type ActiveSession struct {
	Token         string       `json:"token"`
	CustomerID    snowflake.ID `json:"customer_id"`
	CustomerName  string       `json:"customer_name"`
	CustomerEmail string       `json:"customer_email"`
	CreatedAt     time.Time    `json:"created_at"`
	LastSeenAt    time.Time    `json:"last_seen_at"`
	IPAddress     string       `json:"ip_address"`
	UserAgent     string       `json:"user_agent"`
}

// PrunedSession identifies an evicted row so each eviction can be audited.
type PrunedSession struct {
	Token         string
	CustomerID    snowflake.ID
	CustomerEmail string
	LastSeenAt    time.Time
}

// TruncateUserAgent trims a raw User-Agent header to the stored size.
func TruncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLen {
		return ua[:MaxUserAgentLen]
	}
	return ua
}
