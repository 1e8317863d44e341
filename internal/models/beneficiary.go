package models

import "time"

// Beneficiary is a loyalty program participant: a person who earns points
// through purchases made with their cards and spends them on prize exchanges.
//
// The point balance is never stored. It is always derived from the purchase
// and exchange history (see Points), so it can never go stale.
type Beneficiary struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null;index" json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Address   string     `gorm:"size:255" json:"address,omitempty"`

	TownID uint  `gorm:"index;not null" json:"town_id"`
	Town   *Town `gorm:"foreignKey:TownID" json:"town,omitempty"`

	EducationalInstitutionID uint                    `gorm:"index;not null" json:"educational_institution_id"`
	EducationalInstitution   *EducationalInstitution `gorm:"foreignKey:EducationalInstitutionID" json:"educational_institution,omitempty"`

	// UserID links the beneficiary to its identity account (UUID).
	// The pair is created as one unit: either both exist or neither does.
	UserID string `gorm:"size:36;index;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedDate  time.Time  `gorm:"not null" json:"created_date"`
	ModifiedDate *time.Time `json:"modified_date,omitempty"`

	// Deleted is an explicit soft-delete flag rather than gorm.DeletedAt:
	// soft-deleted beneficiaries must stay queryable by id and filterable
	// by the listing's deleted parameter.
	Deleted bool `gorm:"not null;default:false;index" json:"deleted"`

	Cards           []Card           `gorm:"foreignKey:BeneficiaryID" json:"cards,omitempty"`
	PointsExchanges []PointsExchange `gorm:"foreignKey:BeneficiaryID" json:"points_exchanges,omitempty"`
}

// Points returns the current balance: purchases across all cards minus
// points spent on exchanges, with the fraction discarded.
// Cards.Purchases and PointsExchanges must be loaded.
func (b *Beneficiary) Points() int {
	return PointsBalance(b.AllPurchases(), b.PointsExchanges)
}

// AllPurchases flattens the purchases of every card.
func (b *Beneficiary) AllPurchases() []Purchase {
	var purchases []Purchase
	for _, c := range b.Cards {
		purchases = append(purchases, c.Purchases...)
	}
	return purchases
}

// Town is a lookup entity for the beneficiary's place of residence.
type Town struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

// EducationalInstitution is a lookup entity for the beneficiary's school.
type EducationalInstitution struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	TownID uint   `gorm:"index" json:"town_id"`
	Town   *Town  `gorm:"foreignKey:TownID" json:"town,omitempty"`
}
