// Package identity manages user accounts: creation, role assignment and
// removal. It is the identity collaborator consumed by the lifecycle
// services; everything else goes through the primary persistence layer.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/models"
)

// NewAccount is the input for account creation.
type NewAccount struct {
	Email    string
	Password string
	Name     string
}

// CreateError reports an account creation rejected by the identity subsystem
// (validation or constraint). It is distinguishable from infrastructure
// errors so callers can surface it as a domain failure.
type CreateError struct {
	Reason string
}

func (e *CreateError) Error() string {
	return "identity: account creation failed: " + e.Reason
}

// Manager is the identity surface consumed by lifecycle services.
type Manager interface {
	// CreateAccount creates an account and returns its id.
	CreateAccount(acct NewAccount) (string, error)
	// FindByEmail returns the account with the given email, or nil.
	FindByEmail(email string) (*models.User, error)
	// AssignRole adds the named role to an account.
	AssignRole(userID, roleName string) error
	// MarkDeleted soft-deletes an account.
	MarkDeleted(userID string) error
	// DeleteAccount removes an account row entirely.
	DeleteAccount(userID string) error
}

// UserManager is the GORM-backed Manager. It shares the primary database, so
// rows it creates are visible to the rest of the persistence layer.
type UserManager struct {
	db *gorm.DB
}

func NewUserManager(db *gorm.DB) *UserManager { return &UserManager{db: db} }

func (m *UserManager) CreateAccount(acct NewAccount) (string, error) {
	email := strings.TrimSpace(strings.ToLower(acct.Email))
	if email == "" || !strings.Contains(email, "@") {
		return "", &CreateError{Reason: "invalid email"}
	}
	if len(acct.Password) < 6 {
		return "", &CreateError{Reason: "password too short"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(acct.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     strings.TrimSpace(acct.Name),
		Password: string(hash),
	}
	if err := m.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Unique index backstop for the best-effort FindByEmail pre-check.
			return "", &CreateError{Reason: "email already registered"}
		}
		return "", fmt.Errorf("create account: %w", err)
	}
	return user.ID, nil
}

func (m *UserManager) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := m.db.Where("email = ?", strings.TrimSpace(strings.ToLower(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *UserManager) AssignRole(userID, roleName string) error {
	var role models.Role
	if err := m.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return fmt.Errorf("role %q: %w", roleName, err)
	}
	var user models.User
	if err := m.db.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("account %s: %w", userID, err)
	}
	if err := m.db.Model(&user).Association("Roles").Append(&role); err != nil {
		return fmt.Errorf("assign role %q: %w", roleName, err)
	}
	return nil
}

func (m *UserManager) MarkDeleted(userID string) error {
	res := m.db.Model(&models.User{}).Where("id = ?", userID).Update("deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (m *UserManager) DeleteAccount(userID string) error {
	if err := m.db.Exec("DELETE FROM user_roles WHERE user_id = ?", userID).Error; err != nil {
		return err
	}
	return m.db.Delete(&models.User{}, "id = ?", userID).Error
}

// VerifyPassword checks a login attempt against the stored hash.
func (m *UserManager) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}
