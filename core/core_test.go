package core

import (
	"context"
)

type testLogger struct{}

func (l testLogger) Debug(string, ...any) {}
func (l testLogger) Info(string, ...any)  {}
func (l testLogger) Warn(string, ...any)  {}
func (l testLogger) Error(string, ...any) {}
func (l testLogger) Fatal(string, ...any) {}

type rcMockSessionService struct {
	applied map[string]map[string]any
}

func (s *rcMockSessionService) Get(id string) (*Session, error)       { return NewSession(id), nil }
func (s *rcMockSessionService) Create(id string) (*Session, error)    { return NewSession(id), nil }
func (s *rcMockSessionService) AppendEvent(id string, ev Event) error { return nil }
func (s *rcMockSessionService) ApplyDelta(id string, delta map[string]any) error {
	if s.applied == nil {
		s.applied = map[string]map[string]any{}
	}
	cp := map[string]any{}
	for k, v := range delta {
		cp[k] = v
	}
	s.applied[id] = cp
	return nil
}

type rcMockArtifactService struct{ saved map[string]map[string][]byte }

func (a *rcMockArtifactService) Save(sid, aid string, data []byte) error {
	if a.saved == nil {
		a.saved = map[string]map[string][]byte{}
	}
	if _, ok := a.saved[sid]; !ok {
		a.saved[sid] = map[string][]byte{}
	}
	a.saved[sid][aid] = append([]byte{}, data...)
	return nil
}
func (a *rcMockArtifactService) Get(sid, aid string) ([]byte, error) {
	if a.saved == nil {
		return nil, nil
	}
	if m, ok := a.saved[sid]; ok {
		return m[aid], nil
	}
	return nil, nil
}
func (a *rcMockArtifactService) List(sid string) ([]string, error) {
	if a.saved == nil {
		return []string{}, nil
	}
	m := a.saved[sid]
	res := []string{}
	for k := range m {
		res = append(res, k)
	}
	return res, nil
}
func (a *rcMockArtifactService) Delete(sid, aid string) error { return nil }

type rcMockMemoryService struct{}

func (m *rcMockMemoryService) Get(sessionID string) (map[string]any, error) {
	return map[string]any{}, nil
}
func (m *rcMockMemoryService) Put(sessionID string, delta map[string]any) error { return nil }
func (m *rcMockMemoryService) Search(sid, q string, limit int) ([]SearchResult, error) {
	return []SearchResult{}, nil
}
func (m *rcMockMemoryService) Store(sid, content string, metadata map[string]any) error {
	return nil
}
func (m *rcMockMemoryService) Delete(sid, memoryID string) error { return nil }

func newRunContextForTest() (*RunContext, chan Event) {
	emit := make(chan Event, 5)
	resume := make(chan struct{}, 5)
	sess := NewSession("sess-x")
	sSvc := &rcMockSessionService{}
	aSvc := &rcMockArtifactService{}
	mSvc := &rcMockMemoryService{}
	return NewRunContext(context.Background(), "sess-x", "run-x", AgentInfo{Name: "Agent1", Type: "test"}, Content{}, 0, emit, resume, sess, sSvc, aSvc, mSvc, testLogger{}), emit
}
