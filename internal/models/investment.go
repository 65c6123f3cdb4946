package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentPending   InvestmentStatus = "pending"
	InvestmentConfirmed InvestmentStatus = "confirmed"
	InvestmentRefunded  InvestmentStatus = "refunded"
	InvestmentFailed    InvestmentStatus = "failed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

// Reserves reports whether the status counts against a campaign's goal.
func (s InvestmentStatus) Reserves() bool {
	return s == InvestmentPending || s == InvestmentConfirmed
}

type Investment struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	CampaignID string           `json:"campaign_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     InvestmentStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// InvestmentView is the display row for a user's portfolio.
type InvestmentView struct {
	Investment
	CampaignTitle  string         `json:"campaign_title"`
	CampaignStatus CampaignStatus `json:"campaign_status"`
	RestaurantName string         `json:"restaurant_name"`
}
