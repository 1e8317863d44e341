package models

import "time"

// ExchangeStatus represents the approval status of a points exchange.
type ExchangeStatus string

const (
	ExchangeStatusPending  ExchangeStatus = "pending"
	ExchangeStatusApproved ExchangeStatus = "approved"
	ExchangeStatusRejected ExchangeStatus = "rejected"
)

// PointsExchange is a points-spending transaction: a prize redemption tied
// directly to a beneficiary. PointsUsed may be fractional on input; the
// derived balance is truncated, not the stored amount.
type PointsExchange struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	BeneficiaryID uint    `gorm:"index;not null" json:"beneficiary_id"`
	PrizeName     string  `gorm:"size:255" json:"prize_name,omitempty"`
	PointsUsed    float64 `gorm:"not null" json:"points_used"`

	Status ExchangeStatus `gorm:"size:20;not null;default:'pending'" json:"status"`

	TransactionDate time.Time `gorm:"not null;index" json:"transaction_date"`
}
