package notify

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/models"
)

func setupNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, m := range []any{&models.User{}, &models.Notification{}} {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("migrate %T: %v", m, err)
		}
	}
	return db
}

func TestEmailNotifierRecordsFailedAttempt(t *testing.T) {
	db := setupNotifyTestDB(t)
	user := models.User{ID: "u-1", Email: "ana@example.com", Name: "Ana"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}

	// No SMTP host configured: the send must fail but still be recorded.
	n := NewEmailNotifier(db, SMTPConfig{})
	if err := n.SendAccountConfirmation(user.ID); err == nil {
		t.Fatal("expected send error with no smtp config")
	}

	var rec models.Notification
	if err := db.First(&rec, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("expected notification row: %v", err)
	}
	if rec.Sent {
		t.Error("expected sent=false")
	}
	if rec.Error == "" {
		t.Error("expected error recorded")
	}
	if rec.Type != "account_confirmation" {
		t.Errorf("type = %q", rec.Type)
	}
}

func TestEmailNotifierUnknownUser(t *testing.T) {
	db := setupNotifyTestDB(t)
	n := NewEmailNotifier(db, SMTPConfig{Host: "localhost", Port: 2525, From: "no-reply@pointex.local"})
	if err := n.SendAccountConfirmation("missing"); err == nil {
		t.Fatal("expected error for unknown account")
	}
}
