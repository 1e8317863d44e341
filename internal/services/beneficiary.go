package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/pointex/internal/identity"
	"github.com/diewo77/pointex/internal/models"
	"github.com/diewo77/pointex/internal/notify"
)

// ErrDuplicateEmail reports a creation attempt with an email that is already
// registered. The pre-check is best-effort; the unique index on users.email
// backs it up at the store.
var ErrDuplicateEmail = errors.New("an account already exists with that email")

// BeneficiaryService orchestrates the beneficiary lifecycle: the multi-step
// creation workflow across the identity and persistence subsystems, edits,
// and the hard/soft deletion policy.
type BeneficiaryService struct {
	db       *gorm.DB
	users    identity.Manager
	notifier notify.Notifier
	now      func() time.Time
}

func NewBeneficiaryService(db *gorm.DB, users identity.Manager, notifier notify.Notifier) *BeneficiaryService {
	return &BeneficiaryService{db: db, users: users, notifier: notifier, now: time.Now}
}

// Create provisions the beneficiary and its identity account as one logical
// unit. On any failure after the account exists (except notification), the
// just-created account is removed again so no orphan is left behind:
//
//  1. duplicate-email pre-check
//  2. create the identity account
//  3. assign the Beneficiary role (failure rolls the account back)
//  4. send the confirmation notification (failure logged and ignored)
//  5. stamp, link and persist the beneficiary (failure rolls the account back)
func (s *BeneficiaryService) Create(b *models.Beneficiary, acct identity.NewAccount) error {
	existing, err := s.users.FindByEmail(acct.Email)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return ErrDuplicateEmail
	}

	userID, err := s.users.CreateAccount(acct)
	if err != nil {
		return err
	}

	if err := s.users.AssignRole(userID, models.RoleBeneficiary); err != nil {
		s.removeOrphanAccount(userID)
		return fmt.Errorf("assign beneficiary role: %w", err)
	}

	// Best-effort by contract: account creation must not fail merely
	// because the confirmation email could not be sent.
	if err := s.notifier.SendAccountConfirmation(userID); err != nil {
		log.Printf("beneficiary create: confirmation notification failed for %s: %v", userID, err)
	}

	b.CreatedDate = s.now()
	b.UserID = userID
	if err := s.db.Omit(clause.Associations).Create(b).Error; err != nil {
		s.removeOrphanAccount(userID)
		return fmt.Errorf("persist beneficiary: %w", err)
	}
	return nil
}

// removeOrphanAccount is the compensating action for a creation that failed
// after the identity account was created. Its own failure is only logged;
// the original error is what propagates.
func (s *BeneficiaryService) removeOrphanAccount(userID string) {
	if err := s.users.DeleteAccount(userID); err != nil {
		log.Printf("beneficiary create: compensating account delete failed for %s: %v", userID, err)
	}
}

// Edit updates the beneficiary's fields and stamps ModifiedDate.
func (s *BeneficiaryService) Edit(b *models.Beneficiary) error {
	now := s.now()
	b.ModifiedDate = &now
	return s.db.Omit(clause.Associations).Save(b).Error
}

// Delete applies the deletion policy: a beneficiary with no point-affecting
// history is hard-deleted together with its cards and identity account;
// otherwise the pair is soft-deleted so the history stays intact. The policy
// re-checks the history inside the transaction, not from a caller snapshot.
func (s *BeneficiaryService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Beneficiary
		if err := tx.Preload("Cards").First(&b, id).Error; err != nil {
			return fmt.Errorf("load beneficiary %d: %w", id, err)
		}
		var user models.User
		if err := tx.First(&user, "id = ?", b.UserID).Error; err != nil {
			return fmt.Errorf("load account %s: %w", b.UserID, err)
		}

		canRemove, err := canRemoveBeneficiary(tx, id)
		if err != nil {
			return err
		}

		if canRemove {
			if err := tx.Delete(&models.Card{}, "beneficiary_id = ?", id).Error; err != nil {
				return fmt.Errorf("delete cards: %w", err)
			}
			if err := tx.Delete(&b).Error; err != nil {
				return fmt.Errorf("delete beneficiary: %w", err)
			}
			if err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", user.ID).Error; err != nil {
				return fmt.Errorf("delete roles: %w", err)
			}
			if err := tx.Delete(&user).Error; err != nil {
				return fmt.Errorf("delete account: %w", err)
			}
			return nil
		}

		if err := tx.Model(&b).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("soft-delete beneficiary: %w", err)
		}
		if err := tx.Model(&user).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("soft-delete account: %w", err)
		}
		return nil
	})
}

// canRemoveBeneficiary decides hard delete vs soft delete: hard deletion is
// allowed only while the beneficiary has no exchanges and no purchases at
// all. Once any points activity exists the rows must be preserved.
func canRemoveBeneficiary(tx *gorm.DB, id uint) (bool, error) {
	var exchanges int64
	if err := tx.Model(&models.PointsExchange{}).Where("beneficiary_id = ?", id).Count(&exchanges).Error; err != nil {
		return false, err
	}
	if exchanges > 0 {
		return false, nil
	}
	var purchases int64
	err := tx.Model(&models.Purchase{}).
		Joins("JOIN cards ON cards.id = purchases.card_id").
		Where("cards.beneficiary_id = ?", id).
		Count(&purchases).Error
	if err != nil {
		return false, err
	}
	return purchases == 0, nil
}

// GetByID returns the beneficiary with all related entities expanded.
func (s *BeneficiaryService) GetByID(id uint) (*models.Beneficiary, error) {
	var b models.Beneficiary
	if err := s.withIncludes().First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByUserID returns the beneficiary owned by the given identity account.
func (s *BeneficiaryService) GetByUserID(userID string) (*models.Beneficiary, error) {
	var b models.Beneficiary
	if err := s.withIncludes().Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BeneficiaryService) withIncludes() *gorm.DB {
	return s.db.
		Preload("Town").
		Preload("User").
		Preload("EducationalInstitution").
		Preload("Cards").
		Preload("Cards.Purchases").
		Preload("PointsExchanges")
}

// ListQuery holds the filters and paging for GetAll. Nil pointer filters
// are not applied.
type ListQuery struct {
	Criteria                 string
	TownID                   *uint
	EducationalInstitutionID *uint
	Deleted                  *bool
	SortBy                   string
	SortDir                  string
	Page                     int
	PageSize                 int
}

// Sortable columns for listings; anything else falls back to the default.
var beneficiarySortColumns = map[string]string{
	"name":          "name",
	"created_date":  "created_date",
	"modified_date": "modified_date",
	"town_id":       "town_id",
}

// GetAll returns one page of beneficiary read models plus the total count of
// rows matching the filters. The default order is creation time descending.
func (s *BeneficiaryService) GetAll(q ListQuery) ([]models.BeneficiaryDto, int64, error) {
	db := s.db.Model(&models.Beneficiary{})
	if criteria := strings.TrimSpace(q.Criteria); criteria != "" {
		db = db.Where("lower(name) LIKE ?", "%"+strings.ToLower(criteria)+"%")
	}
	if q.TownID != nil {
		db = db.Where("town_id = ?", *q.TownID)
	}
	if q.EducationalInstitutionID != nil {
		db = db.Where("educational_institution_id = ?", *q.EducationalInstitutionID)
	}
	if q.Deleted != nil {
		db = db.Where("deleted = ?", *q.Deleted)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := beneficiarySortColumns[q.SortBy]
	if !ok {
		column = "created_date"
	}
	dir := "DESC"
	if strings.EqualFold(q.SortDir, "asc") {
		dir = "ASC"
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}

	var rows []models.Beneficiary
	err := db.
		Preload("Town").
		Preload("EducationalInstitution").
		Order(column + " " + dir).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]models.BeneficiaryDto, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, models.ToBeneficiaryDto(&rows[i]))
	}
	return dtos, total, nil
}

// GetTransactions reconstructs the beneficiary's running-balance ledger from
// its purchases and exchanges, most recent first.
func (s *BeneficiaryService) GetTransactions(id uint) ([]models.PointTransaction, error) {
	purchases, exchanges, err := s.pointSources(id)
	if err != nil {
		return nil, err
	}
	return models.PointsLedger(purchases, exchanges), nil
}

// Balance recomputes the beneficiary's current point balance from source
// rows. The balance is never read from a stored column.
func (s *BeneficiaryService) Balance(id uint) (int, error) {
	purchases, exchanges, err := s.pointSources(id)
	if err != nil {
		return 0, err
	}
	return models.PointsBalance(purchases, exchanges), nil
}

// pointSources fetches the two independent transaction sources: purchases
// across all the beneficiary's cards, and its points exchanges.
func (s *BeneficiaryService) pointSources(id uint) ([]models.Purchase, []models.PointsExchange, error) {
	var purchases []models.Purchase
	err := s.db.
		Joins("JOIN cards ON cards.id = purchases.card_id").
		Where("cards.beneficiary_id = ?", id).
		Find(&purchases).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load purchases: %w", err)
	}
	var exchanges []models.PointsExchange
	if err := s.db.Where("beneficiary_id = ?", id).Find(&exchanges).Error; err != nil {
		return nil, nil, fmt.Errorf("load exchanges: %w", err)
	}
	return purchases, exchanges, nil
}
