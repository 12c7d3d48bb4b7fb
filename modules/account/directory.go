package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Directory - mazylab_users 읽기 / 쓰기 (read-modify-write 직렬화)
type Directory struct {
	store BlobStore
	mu    sync.Mutex
}

// NewDirectory - Directory 생성
func NewDirectory(store BlobStore) *Directory {
	return &Directory{store: store}
}

// Bootstrap - 관리자 계정을 항상 기본값으로 덮어씀
func (d *Directory) Bootstrap(ctx context.Context) error {
	err := d.modify(ctx, func(users map[string]UserRecord) error {
		users[AdminEmail] = UserRecord{
			Password: adminPassword,
			Company:  "MazyLab",
			School:   "Admin",
			Industry: "Administration",
			Phone:    "N/A",
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Printf("👑 Admin account reset: %s", AdminEmail)
	return nil
}

func (d *Directory) load(ctx context.Context) (map[string]UserRecord, error) {
	users := make(map[string]UserRecord)
	data, err := d.store.Get(ctx, usersKey)
	if errors.Is(err, ErrNotFound) {
		return users, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", usersKey, err)
	}
	return users, nil
}

// snapshot - 현재 사용자 목록
func (d *Directory) snapshot(ctx context.Context) (map[string]UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(ctx)
}

// modify - 잠금 상태에서 목록을 수정하고 저장 (fn 에러 시 저장 안 함)
func (d *Directory) modify(ctx context.Context, fn func(users map[string]UserRecord) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(users); err != nil {
		return err
	}

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", usersKey, err)
	}
	return d.store.Set(ctx, usersKey, data)
}
