package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/identity"
	"github.com/diewo77/pointex/internal/models"
	"github.com/diewo77/pointex/internal/services"
)

func setupBeneficiaryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	tables := []any{
		&models.Role{}, &models.User{}, &models.Town{}, &models.EducationalInstitution{},
		&models.Beneficiary{}, &models.Card{}, &models.Purchase{}, &models.PointsExchange{},
		&models.Notification{},
	}
	for _, m := range tables {
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("migrate %T: %v", m, err)
		}
	}
	return db
}

// seedBeneficiaryFixtures creates the role and lookup rows every handler
// test needs.
func seedBeneficiaryFixtures(t *testing.T, db *gorm.DB) (town models.Town, school models.EducationalInstitution) {
	t.Helper()
	if err := db.Create(&models.Role{Name: models.RoleBeneficiary}).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	town = models.Town{Name: "Rosario"}
	if err := db.Create(&town).Error; err != nil {
		t.Fatalf("town: %v", err)
	}
	school = models.EducationalInstitution{Name: "Escuela 42", TownID: town.ID}
	if err := db.Create(&school).Error; err != nil {
		t.Fatalf("school: %v", err)
	}
	return
}

type noopNotifier struct{}

func (noopNotifier) SendAccountConfirmation(string) error { return nil }

func newHandler(db *gorm.DB) *BeneficiaryHandler {
	svc := services.NewBeneficiaryService(db, identity.NewUserManager(db), noopNotifier{})
	return NewBeneficiaryHandler(svc)
}

func createViaAPI(t *testing.T, h *BeneficiaryHandler, town models.Town, school models.EducationalInstitution, name, email string) models.BeneficiaryDto {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":"secret1","town_id":%d,"educational_institution_id":%d}`,
		name, email, town.ID, school.ID)
	req := httptest.NewRequest(http.MethodPost, "/beneficiaries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var dto models.BeneficiaryDto
	if err := json.Unmarshal(w.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return dto
}

func TestBeneficiaryCreateJSON(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	dto := createViaAPI(t, h, town, school, "Ana Perez", "ana@example.com")
	if dto.ID == 0 || dto.UserID == "" {
		t.Fatalf("expected id and linked user, got %+v", dto)
	}
	if dto.CreatedDate.IsZero() {
		t.Fatal("expected created_date set")
	}
}

func TestBeneficiaryCreateValidation(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/beneficiaries", strings.NewReader(`{"name":"","email":"bad","password":"123"}`))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Fatalf("expected validation error, got %s", w.Body.String())
	}
}

func TestBeneficiaryCreateDuplicateEmail(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	createViaAPI(t, h, town, school, "Ana", "dup@example.com")

	body := fmt.Sprintf(`{"name":"Bruno","email":"dup@example.com","password":"secret1","town_id":%d,"educational_institution_id":%d}`, town.ID, school.ID)
	req := httptest.NewRequest(http.MethodPost, "/beneficiaries", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestBeneficiaryGetWithPoints(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	dto := createViaAPI(t, h, town, school, "Ana", "ana@example.com")
	card := models.Card{BeneficiaryID: dto.ID, Number: "C-001", CreatedDate: time.Now()}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("card: %v", err)
	}
	if err := db.Create(&models.Purchase{CardID: card.ID, Amount: 150.7, TransactionDate: time.Now()}).Error; err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := db.Create(&models.PointsExchange{BeneficiaryID: dto.ID, PointsUsed: 50, TransactionDate: time.Now()}).Error; err != nil {
		t.Fatalf("exchange: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/beneficiaries/get?id="+strconv.Itoa(int(dto.ID)), nil)
	w := httptest.NewRecorder()
	h.Get(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		Points int          `json:"points"`
		Town   *models.Town `json:"town"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Points != 100 {
		t.Errorf("points = %d, want 100", got.Points)
	}
	if got.Town == nil || got.Town.Name != "Rosario" {
		t.Errorf("expected town expanded, got %+v", got.Town)
	}
}

func TestBeneficiaryGetNotFound(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	req := httptest.NewRequest(http.MethodGet, "/beneficiaries/get?id=999", nil)
	w := httptest.NewRecorder()
	h.Get(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestBeneficiaryUpdate(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	dto := createViaAPI(t, h, town, school, "Ana", "ana@example.com")
	body := fmt.Sprintf(`{"id":%d,"name":"Ana Maria","town_id":%d,"educational_institution_id":%d}`, dto.ID, town.ID, school.ID)
	req := httptest.NewRequest(http.MethodPost, "/beneficiaries/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var updated models.BeneficiaryDto
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Name != "Ana Maria" {
		t.Errorf("name = %q, want Ana Maria", updated.Name)
	}
	if updated.ModifiedDate == nil {
		t.Error("expected modified_date stamped")
	}
}

func TestBeneficiaryDeleteHardViaAPI(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	dto := createViaAPI(t, h, town, school, "Ana", "ana@example.com")
	req := httptest.NewRequest(http.MethodPost, "/beneficiaries/delete?id="+strconv.Itoa(int(dto.ID)), nil)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	db.Model(&models.Beneficiary{}).Count(&count)
	if count != 0 {
		t.Fatal("expected hard delete with no history")
	}
}

func TestBeneficiaryTransactions(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	dto := createViaAPI(t, h, town, school, "Ana", "ana@example.com")
	card := models.Card{BeneficiaryID: dto.ID, Number: "C-001", CreatedDate: time.Now()}
	if err := db.Create(&card).Error; err != nil {
		t.Fatalf("card: %v", err)
	}
	t1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	if err := db.Create(&models.Purchase{CardID: card.ID, Amount: 30, TransactionDate: t1}).Error; err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if err := db.Create(&models.PointsExchange{BeneficiaryID: dto.ID, PointsUsed: 10, TransactionDate: t2}).Error; err != nil {
		t.Fatalf("exchange: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/beneficiaries/transactions?id="+strconv.Itoa(int(dto.ID)), nil)
	w := httptest.NewRecorder()
	h.Transactions(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		Transactions []models.PointTransaction `json:"transactions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("expected 2 entries got %d", len(got.Transactions))
	}
	if got.Transactions[0].Total != 20 || got.Transactions[1].Total != 30 {
		t.Errorf("running totals = [%v %v], want [20 30]",
			got.Transactions[0].Total, got.Transactions[1].Total)
	}
}

func TestBeneficiaryListFilters(t *testing.T) {
	db := setupBeneficiaryTestDB(t)
	town, school := seedBeneficiaryFixtures(t, db)
	h := newHandler(db)

	createViaAPI(t, h, town, school, "Ana Perez", "ana@example.com")
	createViaAPI(t, h, town, school, "Bruno Diaz", "bruno@example.com")

	req := httptest.NewRequest(http.MethodGet, "/beneficiaries?q=ana", nil)
	w := httptest.NewRecorder()
	h.List(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var page struct {
		Items []models.BeneficiaryDto `json:"items"`
		Total int64                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Name != "Ana Perez" {
		t.Fatalf("expected Ana only, got %+v", page)
	}
}
