package models

import "time"

// BeneficiaryDto is the flat read model returned by listings. It carries the
// related names inline and no navigation collections, so it serializes
// without cycles.
type BeneficiaryDto struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Address   string     `json:"address,omitempty"`

	TownID   uint   `json:"town_id"`
	TownName string `json:"town_name,omitempty"`

	EducationalInstitutionID   uint   `json:"educational_institution_id"`
	EducationalInstitutionName string `json:"educational_institution_name,omitempty"`

	UserID       string     `json:"user_id"`
	CreatedDate  time.Time  `json:"created_date"`
	ModifiedDate *time.Time `json:"modified_date,omitempty"`
	Deleted      bool       `json:"deleted"`
}

// ToBeneficiaryDto projects a beneficiary onto its read model. Town and
// EducationalInstitution should be preloaded; missing relations leave the
// name fields empty.
func ToBeneficiaryDto(b *Beneficiary) BeneficiaryDto {
	dto := BeneficiaryDto{
		ID:                       b.ID,
		Name:                     b.Name,
		BirthDate:                b.BirthDate,
		Address:                  b.Address,
		TownID:                   b.TownID,
		EducationalInstitutionID: b.EducationalInstitutionID,
		UserID:                   b.UserID,
		CreatedDate:              b.CreatedDate,
		ModifiedDate:             b.ModifiedDate,
		Deleted:                  b.Deleted,
	}
	if b.Town != nil {
		dto.TownName = b.Town.Name
	}
	if b.EducationalInstitution != nil {
		dto.EducationalInstitutionName = b.EducationalInstitution.Name
	}
	return dto
}
