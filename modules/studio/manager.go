package studio

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound - 존재하지 않는 세션
var ErrSessionNotFound = errors.New("session not found")

const maxSessionAge = 24 * time.Hour

// Session - 스튜디오 상태 + WebSocket 구독자
type Session struct {
	orch      *Orchestrator
	createdAt time.Time

	mu      sync.RWMutex
	clients map[string]*Client
}

// Orchestrator - 세션 상태 머신
func (s *Session) Orchestrator() *Orchestrator {
	return s.orch
}

// ServerMetrics - 서버 메트릭
type ServerMetrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
	mutex            sync.RWMutex
}

// ManagerConfig - 세션 매니저 설정
type ManagerConfig struct {
	PollInterval time.Duration
	SessionTTL   time.Duration // 구독자 없는 세션의 비활성 허용 시간
	Recorder     Recorder
}

// Manager - 세션 생성 / 조회 / 정리
type Manager struct {
	gen       Generator
	resources Resources
	cfg       ManagerConfig

	sessions map[string]*Session
	mutex    sync.RWMutex
	metrics  *ServerMetrics
}

// NewManager - Manager 생성
func NewManager(gen Generator, resources Resources, cfg ManagerConfig) *Manager {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	return &Manager{
		gen:       gen,
		resources: resources,
		cfg:       cfg,
		sessions:  make(map[string]*Session),
		metrics: &ServerMetrics{
			StartTime: time.Now(),
		},
	}
}

// Create - 새 세션 생성
func (m *Manager) Create(userEmail string, lang Language) *Session {
	session := &Session{
		createdAt: time.Now(),
		clients:   make(map[string]*Client),
	}
	session.orch = NewOrchestrator(m.gen, m.resources, Options{
		SessionID:    uuid.NewString(),
		UserEmail:    userEmail,
		Language:     lang,
		PollInterval: m.cfg.PollInterval,
		Recorder:     m.cfg.Recorder,
		OnChange:     session.publish,
	})

	m.mutex.Lock()
	m.sessions[session.orch.ID()] = session
	m.mutex.Unlock()

	m.metrics.mutex.Lock()
	m.metrics.TotalSessions++
	m.metrics.ActiveSessions++
	total, active := m.metrics.TotalSessions, m.metrics.ActiveSessions
	m.metrics.mutex.Unlock()

	log.Printf("✅ Created new studio session: %s (Total: %d, Active: %d)", session.orch.ID(), total, active)
	return session
}

// Get - 세션 조회
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mutex.RLock()
	session, exists := m.sessions[sessionID]
	m.mutex.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove - 세션 종료 및 삭제
func (m *Manager) Remove(sessionID string) error {
	m.mutex.Lock()
	session, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mutex.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	m.closeSession(session, "removed")
	return nil
}

func (m *Manager) closeSession(session *Session, reason string) {
	session.orch.Close()
	session.disconnectAll()

	m.metrics.mutex.Lock()
	m.metrics.ActiveSessions--
	active := m.metrics.ActiveSessions
	m.metrics.mutex.Unlock()

	log.Printf("🧹 Closed %s session: %s (Active: %d)", reason, session.orch.ID(), active)
}

// CleanupExpiredSessions - 만료 / 비활성 세션 정리
func (m *Manager) CleanupExpiredSessions() int {
	now := time.Now()

	m.mutex.Lock()
	var expired []*Session
	for sessionID, session := range m.sessions {
		isExpired := now.Sub(session.createdAt) > maxSessionAge
		isInactive := now.Sub(session.orch.LastActivity()) > m.cfg.SessionTTL && session.clientCount() == 0
		if isExpired || isInactive {
			delete(m.sessions, sessionID)
			expired = append(expired, session)
		}
	}
	m.mutex.Unlock()

	for _, session := range expired {
		m.closeSession(session, "expired")
	}

	if len(expired) > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive sessions", len(expired))
	}
	return len(expired)
}

// RunCleanup - 주기적 정리 (ctx 종료 시 반환)
func (m *Manager) RunCleanup(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Printf("🔄 Started session cleanup routine (every %v, ttl %v)", every, m.cfg.SessionTTL)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.CleanupExpiredSessions()
		}
	}
}

// CloseAll - 서버 종료 시 모든 세션 종료
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.mutex.Unlock()

	for _, session := range sessions {
		m.closeSession(session, "shutdown")
	}
}

// SessionInfo - 세션 요약
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	UserEmail    string    `json:"userEmail,omitempty"`
	ClientCount  int       `json:"clientCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Age          string    `json:"age"`
	Inactive     string    `json:"inactive"`
	Loading      bool      `json:"loading"`
}

// Info - 세션 요약 정보
func (s *Session) Info() SessionInfo {
	last := s.orch.LastActivity()
	return SessionInfo{
		SessionID:    s.orch.ID(),
		UserEmail:    s.orch.UserEmail(),
		ClientCount:  s.clientCount(),
		CreatedAt:    s.createdAt,
		LastActivity: last,
		Age:          time.Since(s.createdAt).String(),
		Inactive:     time.Since(last).String(),
		Loading:      s.orch.IsLoading(),
	}
}

// Metrics - 서버 메트릭 + 세션 목록
func (m *Manager) Metrics() map[string]interface{} {
	m.metrics.mutex.RLock()
	startTime := m.metrics.StartTime
	totalSessions := m.metrics.TotalSessions
	activeSessions := m.metrics.ActiveSessions
	totalConnections := m.metrics.TotalConnections
	m.metrics.mutex.RUnlock()

	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mutex.RUnlock()

	details := make([]SessionInfo, 0, len(sessions))
	totalClients := 0
	for _, session := range sessions {
		info := session.Info()
		totalClients += info.ClientCount
		details = append(details, info)
	}

	return map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           time.Since(startTime).String(),
			"startTime":        startTime,
			"totalSessions":    totalSessions,
			"activeSessions":   activeSessions,
			"totalConnections": totalConnections,
			"currentClients":   totalClients,
		},
		"sessions": details,
	}
}

// Message - WebSocket 메시지
type Message struct {
	Type      string    `json:"type"` // "snapshot" | "session_closed" | "request_state"
	SessionID string    `json:"sessionId"`
	State     *Snapshot `json:"state,omitempty"`
}

// publish - 상태 변경을 모든 구독자에게 전송
func (s *Session) publish(snap Snapshot) {
	s.broadcastToAll(Message{Type: "snapshot", SessionID: snap.SessionID, State: &snap})
}

func (s *Session) broadcastToAll(message Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for clientID, client := range s.clients {
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(s.clients, clientID)
			log.Printf("⚠️  Dropped slow client %s from session %s", clientID, message.SessionID)
		}
	}
}

func (s *Session) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Session) disconnectAll() {
	s.broadcastToAll(Message{Type: "session_closed", SessionID: s.orch.ID()})

	s.mu.Lock()
	defer s.mu.Unlock()
	for clientID, client := range s.clients {
		close(client.send)
		delete(s.clients, clientID)
		log.Printf("🔌 Disconnecting client %s from session %s", clientID, s.orch.ID())
	}
}
