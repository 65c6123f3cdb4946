package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignFunded    CampaignStatus = "funded"
	CampaignFailed    CampaignStatus = "failed"
	CampaignClosed    CampaignStatus = "closed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s CampaignStatus) Terminal() bool {
	switch s {
	case CampaignFunded, CampaignFailed, CampaignClosed, CampaignCancelled:
		return true
	}
	return false
}

func (s CampaignStatus) Valid() bool {
	return s == CampaignDraft || s == CampaignActive || s.Terminal()
}

type Campaign struct {
	ID            string          `json:"id"`
	RestaurantID  string          `json:"restaurant_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	GoalAmount    decimal.Decimal `json:"goal_amount"`
	MinInvestment decimal.Decimal `json:"min_investment"`
	MaxInvestment decimal.Decimal `json:"max_investment"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	Status        CampaignStatus  `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Expired reports whether an active campaign's window has closed at now.
func (c Campaign) Expired(now time.Time) bool {
	return c.Status == CampaignActive && now.After(c.EndDate)
}

// CampaignView is a campaign joined with its restaurant and derived funding.
type CampaignView struct {
	Campaign
	RestaurantName string         `json:"restaurant_name"`
	CuisineType    string         `json:"cuisine_type"`
	Location       string         `json:"location"`
	Funding        FundingSummary `json:"funding"`
}

type CampaignFilter struct {
	Status       CampaignStatus
	RestaurantID string
	Limit        int
	Offset       int
}

// FundingSummary is derived from confirmed investment rows only.
type FundingSummary struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	BackerCount   int             `json:"backer_count"`
}
