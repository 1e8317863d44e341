package models

import "time"

// Card is the instrument through which purchases are recorded for a
// beneficiary. A beneficiary may hold several cards over time.
type Card struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	BeneficiaryID uint   `gorm:"index;not null" json:"beneficiary_id"`
	Number        string `gorm:"size:50;uniqueIndex" json:"number"`

	CreatedDate time.Time `gorm:"not null" json:"created_date"`

	Purchases []Purchase `gorm:"foreignKey:CardID" json:"purchases,omitempty"`
}

// Purchase is a points-earning transaction tied to a card. Amount is the
// number of points earned and may be fractional when computed from a
// purchase total.
type Purchase struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	CardID uint    `gorm:"index;not null" json:"card_id"`
	Amount float64 `gorm:"not null" json:"amount"`

	TransactionDate time.Time `gorm:"not null;index" json:"transaction_date"`
}
