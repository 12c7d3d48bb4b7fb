package export

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const handlePrefix = "blob:"

// ErrHandleNotFound - 해제되었거나 존재하지 않는 핸들
var ErrHandleNotFound = errors.New("resource handle not found")

type resource struct {
	data      []byte
	mimeType  string
	createdAt time.Time
}

// Registry - 로컬 리소스 핸들 (blob:<uuid>) 수명 관리
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*resource
}

// NewRegistry - Registry 생성
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*resource),
	}
}

// Create - 바이너리를 등록하고 핸들 반환
func (r *Registry) Create(data []byte, mimeType string) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.resources[id] = &resource{
		data:      data,
		mimeType:  mimeType,
		createdAt: time.Now(),
	}
	count := len(r.resources)
	r.mu.Unlock()

	log.Printf("📦 [Export] Resource created: %s%s (%s, %d bytes, live: %d)", handlePrefix, id, mimeType, len(data), count)
	return handlePrefix + id
}

// Open - 핸들의 바이너리 조회
func (r *Registry) Open(handle string) ([]byte, string, error) {
	id, ok := parseHandle(handle)
	if !ok {
		return nil, "", ErrHandleNotFound
	}

	r.mu.RLock()
	res, exists := r.resources[id]
	r.mu.RUnlock()

	if !exists {
		return nil, "", ErrHandleNotFound
	}
	return res.data, res.mimeType, nil
}

// Revoke - 핸들 해제 (중복 호출 무시)
func (r *Registry) Revoke(handle string) {
	id, ok := parseHandle(handle)
	if !ok {
		return
	}

	r.mu.Lock()
	_, exists := r.resources[id]
	delete(r.resources, id)
	count := len(r.resources)
	r.mu.Unlock()

	if exists {
		log.Printf("🗑️  [Export] Resource revoked: %s (live: %d)", handle, count)
	}
}

// Len - 살아있는 핸들 수
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

// ServeHTTP - GET /blob/{id}
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	data, mimeType, err := r.Open(handlePrefix + id)
	if err != nil {
		http.Error(w, "Resource not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func parseHandle(handle string) (string, bool) {
	id, ok := strings.CutPrefix(handle, handlePrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
