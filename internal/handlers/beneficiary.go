package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/httpx"
	"github.com/diewo77/pointex/internal/identity"
	"github.com/diewo77/pointex/internal/models"
	"github.com/diewo77/pointex/internal/services"
	"github.com/diewo77/pointex/internal/validation"
)

// BeneficiaryHandler exposes the beneficiary lifecycle and query surface as
// a JSON API. All business rules live in the service; handlers only parse,
// validate and translate errors to status codes.
type BeneficiaryHandler struct {
	Svc *services.BeneficiaryService
}

func NewBeneficiaryHandler(svc *services.BeneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{Svc: svc}
}

// List: GET /beneficiaries
func (h *BeneficiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := services.ListQuery{
		Criteria: r.URL.Query().Get("q"),
		SortBy:   r.URL.Query().Get("sort_by"),
		SortDir:  r.URL.Query().Get("sort_dir"),
	}
	if v := r.URL.Query().Get("town_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			townID := uint(id)
			q.TownID = &townID
		}
	}
	if v := r.URL.Query().Get("institution_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			instID := uint(id)
			q.EducationalInstitutionID = &instID
		}
	}
	if v := r.URL.Query().Get("deleted"); v != "" {
		deleted := v == "1" || v == "true"
		q.Deleted = &deleted
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.PageSize = n
		}
	}

	items, total, err := h.Svc.GetAll(q)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_beneficiaries", nil)
		return
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	httpx.JSON(w, http.StatusOK, httpx.Page{Items: items, Total: total, PageNum: page, PageSize: pageSize})
}

type createBeneficiaryReq struct {
	Name                     string     `json:"name"`
	BirthDate                *time.Time `json:"birth_date,omitempty"`
	Address                  string     `json:"address,omitempty"`
	TownID                   uint       `json:"town_id"`
	EducationalInstitutionID uint       `json:"educational_institution_id"`
	Email                    string     `json:"email"`
	Password                 string     `json:"password"`
}

// Create: POST /beneficiaries
func (h *BeneficiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBeneficiaryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.MinLen("password", req.Password, 6, v)
	validation.PositiveID("town_id", req.TownID, v)
	validation.PositiveID("educational_institution_id", req.EducationalInstitutionID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	b := models.Beneficiary{
		Name:                     req.Name,
		BirthDate:                req.BirthDate,
		Address:                  req.Address,
		TownID:                   req.TownID,
		EducationalInstitutionID: req.EducationalInstitutionID,
	}
	err := h.Svc.Create(&b, identity.NewAccount{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		var createErr *identity.CreateError
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			httpx.JSONError(w, http.StatusConflict, "email_already_registered", nil)
		case errors.As(err, &createErr):
			httpx.JSONError(w, http.StatusBadRequest, "account_creation_rejected", createErr.Reason)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_beneficiary", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, models.ToBeneficiaryDto(&b))
}

// beneficiaryView embeds the entity plus its derived balance.
type beneficiaryView struct {
	*models.Beneficiary
	Points int `json:"points"`
}

// Get: GET /beneficiaries/get?id=... (full related-entity expansion)
func (h *BeneficiaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.Svc.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_beneficiary", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, beneficiaryView{Beneficiary: b, Points: b.Points()})
}

// GetByUser: GET /beneficiaries/by-user?user_id=...
func (h *BeneficiaryHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_user_id", nil)
		return
	}
	b, err := h.Svc.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_beneficiary", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, beneficiaryView{Beneficiary: b, Points: b.Points()})
}

type updateBeneficiaryReq struct {
	ID                       uint       `json:"id"`
	Name                     string     `json:"name"`
	BirthDate                *time.Time `json:"birth_date,omitempty"`
	Address                  string     `json:"address,omitempty"`
	TownID                   uint       `json:"town_id"`
	EducationalInstitutionID uint       `json:"educational_institution_id"`
}

// Update: POST /beneficiaries/update
func (h *BeneficiaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateBeneficiaryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.PositiveID("town_id", req.TownID, v)
	validation.PositiveID("educational_institution_id", req.EducationalInstitutionID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	b, err := h.Svc.GetByID(req.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_beneficiary", nil)
		return
	}
	b.Name = req.Name
	b.BirthDate = req.BirthDate
	b.Address = req.Address
	b.TownID = req.TownID
	b.EducationalInstitutionID = req.EducationalInstitutionID
	if err := h.Svc.Edit(b); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_beneficiary", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, models.ToBeneficiaryDto(b))
}

// Delete: POST /beneficiaries/delete?id=...
func (h *BeneficiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_beneficiary", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Transactions: GET /beneficiaries/transactions?id=...
func (h *BeneficiaryHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ledger, err := h.Svc.GetTransactions(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_transactions", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": ledger})
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}
