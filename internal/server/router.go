package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/pointex/internal/auth"
	"github.com/diewo77/pointex/internal/handlers"
	"github.com/diewo77/pointex/internal/httpx"
	"github.com/diewo77/pointex/internal/identity"
	"github.com/diewo77/pointex/internal/models"
	"github.com/diewo77/pointex/internal/notify"
	"github.com/diewo77/pointex/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, notifier notify.Notifier) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the account still
	// exists and is active.
	auth.SetUserVerifier(func(_ context.Context, userID string) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ? AND deleted = ?", userID, false).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// Role checks back onto the user_roles join table.
	auth.SetRoleChecker(func(_ context.Context, userID, role string) bool {
		var count int64
		err := db.Table("user_roles").
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("user_roles.user_id = ? AND roles.name = ?", userID, role).
			Count(&count).Error
		return err == nil && count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	users := identity.NewUserManager(db)

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(users)
	authHandler.Register(mux)

	// Beneficiary endpoints
	svc := services.NewBeneficiaryService(db, users, notifier)
	bh := handlers.NewBeneficiaryHandler(svc)
	mux.Handle("/beneficiaries", auth.Middleware(auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			bh.List(w, r)
		case http.MethodPost:
			bh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))))
	mux.Handle("/beneficiaries/get", auth.Middleware(auth.RequireAuth(http.HandlerFunc(bh.Get))))
	mux.Handle("/beneficiaries/by-user", auth.Middleware(auth.RequireAuth(http.HandlerFunc(bh.GetByUser))))
	mux.Handle("/beneficiaries/update", auth.Middleware(auth.RequireAuth(http.HandlerFunc(bh.Update))))
	// Removal is destructive, so it is reserved for administrators.
	mux.Handle("/beneficiaries/delete", auth.Middleware(auth.RequireAuth(auth.RequireRole(models.RoleAdmin, http.HandlerFunc(bh.Delete)))))
	mux.Handle("/beneficiaries/transactions", auth.Middleware(auth.RequireAuth(http.HandlerFunc(bh.Transactions))))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
