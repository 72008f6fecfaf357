package model

import "time"

// Roles a user may hold. Only admins may edit lyrics.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Subscription tiers.
const (
	TierFree    = "free"
	TierPremium = "premium"
	TierPro     = "pro"
)

// User represents an account. The password hash is never exposed in API
// responses.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"size:100;not null"`
	Email        string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Role         string     `json:"role" gorm:"size:20;default:user"`
	Subscription string     `json:"subscription,omitempty" gorm:"size:20"`
	SubscribedAt *time.Time `json:"subscription_date,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
