package account

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const claimsKey contextKey = "account_claims"

// Handler - 인증 / 관리자 HTTP API
type Handler struct {
	auth  *Auth
	admin *Admin
}

// NewHandler - Handler 생성
func NewHandler(auth *Auth, admin *Admin) *Handler {
	return &Handler{auth: auth, admin: admin}
}

// RegisterRoutes - 라우터에 계정 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/register", h.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/login", h.Login).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/logout", h.RequireAuth(http.HandlerFunc(h.Logout))).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/me", h.RequireAuth(http.HandlerFunc(h.Me))).Methods("GET", "OPTIONS")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(h.RequireAuth, h.RequireAdmin)
	admin.HandleFunc("/fields", h.ListFields).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users", h.ListUsers).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users", h.CreateUser).Methods("POST")
	admin.HandleFunc("/users/{email}", h.UpdateUser).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/users/{email}", h.DeleteUser).Methods("DELETE")

	log.Println("✅ Account routes registered: /api/auth/*, /api/admin/*")
}

// RequireAuth - Bearer 토큰 검증
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		claims, err := h.auth.Tokens().Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireAdmin - 관리자 클레임 확인 (RequireAuth 뒤에 사용)
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext - RequireAuth가 넣은 클레임
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// CurrentUser - 유효한 토큰이 있으면 이메일, 없으면 빈 문자열 (익명 허용 경로용)
func (h *Handler) CurrentUser(r *http.Request) string {
	token, ok := bearerToken(r)
	if !ok {
		return ""
	}
	claims, err := h.auth.Tokens().Validate(token)
	if err != nil {
		return ""
	}
	return claims.Email
}

// Register - POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	var req RegistrationData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "session": session})
}

// Login - POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

// Logout - POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), claims.Email); err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Me - GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.auth.Me(r.Context(), claims.Email)
	if err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user":     user,
		"is_admin": claims.Admin,
	})
}

// ListFields - GET /api/admin/fields
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fields": Fields()})
}

// ListUsers - GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	users, err := h.admin.List(r.Context())
	if err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

// CreateUser - POST /api/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req RegistrationData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.admin.Create(r.Context(), req); err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

// UpdateUser - PUT /api/admin/users/{email}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	var req RegistrationData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.admin.Update(r.Context(), mux.Vars(r)["email"], req); err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteUser - DELETE /api/admin/users/{email}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), mux.Vars(r)["email"]); err != nil {
		writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeAccountError(w http.ResponseWriter, err error) {
	var accErr *Error
	if !errors.As(err, &accErr) {
		log.Printf("❌ [Account] %v", err)
		writeError(w, http.StatusInternalServerError, "Account storage error")
		return
	}

	status := http.StatusBadRequest
	switch accErr {
	case ErrLoginFailed, ErrNotLoggedIn:
		status = http.StatusUnauthorized
	case ErrRegisterFailed, ErrEmailExists:
		status = http.StatusConflict
	case ErrDeleteAdmin:
		status = http.StatusForbidden
	case ErrUserNotFound:
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       false,
		"error_code":    accErr.Code,
		"error_message": accErr.Message,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success":       false,
		"error_message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}
