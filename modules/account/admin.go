package account

import (
	"context"
	"log"
	"sort"
)

// Field - 관리자 편집 폼 필드
type Field struct {
	Name           string `json:"name"`
	Input          string `json:"input"` // "text" | "password"
	ReadOnlyOnEdit bool   `json:"read_only_on_edit"`
}

var fields = []Field{
	{Name: "email", Input: "text", ReadOnlyOnEdit: true},
	{Name: "password", Input: "password"},
	{Name: "company", Input: "text"},
	{Name: "school", Input: "text"},
	{Name: "industry", Input: "text"},
	{Name: "phone", Input: "text"},
}

// Fields - 폼 필드 목록
func Fields() []Field {
	return fields
}

// Admin - 사용자 관리
type Admin struct {
	dir *Directory
}

// NewAdmin - Admin 생성
func NewAdmin(dir *Directory) *Admin {
	return &Admin{dir: dir}
}

// List - 이메일 순 사용자 목록 (비밀번호 포함)
func (a *Admin) List(ctx context.Context) ([]RegistrationData, error) {
	users, err := a.dir.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]RegistrationData, 0, len(users))
	for email, r := range users {
		list = append(list, RegistrationData{
			Email:    email,
			Password: r.Password,
			Company:  r.Company,
			School:   r.School,
			Industry: r.Industry,
			Phone:    r.Phone,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	return list, nil
}

// Create - 새 사용자 (중복 이메일 / 짧은 비밀번호 거부)
func (a *Admin) Create(ctx context.Context, data RegistrationData) error {
	if data.Email == "" {
		return ErrEmptyFields
	}

	err := a.dir.modify(ctx, func(users map[string]UserRecord) error {
		if _, exists := users[data.Email]; exists {
			return ErrEmailExists
		}
		if len(data.Password) < minPasswordChars {
			return ErrPasswordLength
		}
		users[data.Email] = data.record()
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("➕ [Admin] Created user %s", data.Email)
	return nil
}

// Update - 이메일은 변경 불가, 빈 비밀번호는 기존 값 유지
func (a *Admin) Update(ctx context.Context, email string, data RegistrationData) error {
	err := a.dir.modify(ctx, func(users map[string]UserRecord) error {
		existing, ok := users[email]
		if !ok {
			return ErrUserNotFound
		}
		updated := data.record()
		if updated.Password == "" {
			updated.Password = existing.Password
		}
		users[email] = updated
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("✏️  [Admin] Updated user %s", email)
	return nil
}

// Delete - 관리자 계정은 삭제 불가
func (a *Admin) Delete(ctx context.Context, email string) error {
	if IsAdmin(email) {
		return ErrDeleteAdmin
	}

	err := a.dir.modify(ctx, func(users map[string]UserRecord) error {
		if _, ok := users[email]; !ok {
			return ErrUserNotFound
		}
		delete(users, email)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("🗑️  [Admin] Deleted user %s", email)
	return nil
}
