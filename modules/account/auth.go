package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Session - 로그인 / 가입 결과
type Session struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	IsAdmin bool   `json:"is_admin"`
}

// Auth - 가입 / 로그인 / 로그아웃
type Auth struct {
	dir    *Directory
	store  BlobStore
	tokens *TokenService
}

// NewAuth - Auth 생성
func NewAuth(dir *Directory, tokens *TokenService) *Auth {
	return &Auth{dir: dir, store: dir.store, tokens: tokens}
}

// ValidateCredentials - 폼 검증 (빈 값 → 이메일 형식 → 비밀번호 길이)
func ValidateCredentials(email, password string) error {
	if email == "" || password == "" {
		return ErrEmptyFields
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if len(password) < minPasswordChars {
		return ErrPasswordLength
	}
	return nil
}

// Register - 새 계정 생성 후 바로 로그인
func (a *Auth) Register(ctx context.Context, data RegistrationData) (Session, error) {
	if err := ValidateCredentials(data.Email, data.Password); err != nil {
		return Session{}, err
	}

	err := a.dir.modify(ctx, func(users map[string]UserRecord) error {
		if _, exists := users[data.Email]; exists {
			return ErrRegisterFailed
		}
		users[data.Email] = data.record()
		return nil
	})
	if err != nil {
		var accErr *Error
		if !errors.As(err, &accErr) {
			log.Printf("❌ [Account] Register failed for %s: %v", data.Email, err)
			return Session{}, ErrRegisterFailed
		}
		return Session{}, err
	}

	log.Printf("✅ [Account] Registered %s", data.Email)
	return a.startSession(ctx, data.record().user(data.Email))
}

// Login - 비밀번호 일치 시 세션 발급
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return Session{}, err
	}

	users, err := a.dir.snapshot(ctx)
	if err != nil {
		log.Printf("❌ [Account] Login lookup failed: %v", err)
		return Session{}, ErrLoginFailed
	}

	record, ok := users[email]
	if !ok || record.Password != password {
		return Session{}, ErrLoginFailed
	}

	log.Printf("🔑 [Account] %s logged in", email)
	return a.startSession(ctx, record.user(email))
}

// Logout - 현재 사용자 레코드 삭제
func (a *Auth) Logout(ctx context.Context, email string) error {
	if err := a.store.Delete(ctx, profileKey(email)); err != nil {
		return err
	}
	log.Printf("👋 [Account] %s logged out", email)
	return nil
}

// Me - 로그인된 사용자 프로필
func (a *Auth) Me(ctx context.Context, email string) (User, error) {
	data, err := a.store.Get(ctx, profileKey(email))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrNotLoggedIn
	}
	if err != nil {
		return User{}, err
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		// 손상된 레코드는 지우고 로그아웃 처리
		log.Printf("⚠️  [Account] Corrupt profile for %s, clearing: %v", email, err)
		_ = a.store.Delete(ctx, profileKey(email))
		return User{}, ErrNotLoggedIn
	}
	return user, nil
}

// Tokens - 토큰 검증기
func (a *Auth) Tokens() *TokenService {
	return a.tokens
}

func (a *Auth) startSession(ctx context.Context, user User) (Session, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := a.store.Set(ctx, profileKey(user.Email), data); err != nil {
		return Session{}, err
	}

	token, err := a.tokens.Generate(user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: token, User: user, IsAdmin: IsAdmin(user.Email)}, nil
}

func profileKey(email string) string {
	return currentUserKey + ":" + email
}
