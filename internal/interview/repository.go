package interview

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Record is the registry entry of one interview session.
type Record struct {
	CandidateName  string
	JobRole        string
	ResumeAnalysis string
	CreatedAt      time.Time
	EndedAt        time.Time

	AvatarURL            string
	AvatarConversationID string

	// CodingEvaluation and CodingScore are set once a coding submission was evaluated.
	CodingEvaluation any
	CodingScore      *int

	// Report is set once the interview was ended through the service.
	Report *Report

	Controller *Controller

	mu sync.Mutex
}

// ID returns the session identifier of the record's controller.
func (r *Record) ID() string {
	if r == nil || r.Controller == nil {
		return ""
	}
	return r.Controller.SessionID()
}

// Exclusive runs fn while holding the record lock. Operations on one session are serialised this way.
func (r *Record) Exclusive(fn func(r *Record) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r)
}

// Repository is the typed session registry.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	End(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryRepository returns a process-local registry. Records are lost when the process exits.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (m *memoryRepository) Create(_ context.Context, record *Record) error {
	id := record.ID()
	if id == "" {
		return errors.New("record without session controller")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; exists {
		return errors.New("session already registered: " + id)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.now()
	}
	m.records[id] = record
	return nil
}

func (m *memoryRepository) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

// End stamps the end time. The record stays retrievable.
func (m *memoryRepository) End(_ context.Context, id string) error {
	m.mu.RLock()
	record, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	return record.Exclusive(func(r *Record) error {
		if r.EndedAt.IsZero() {
			r.EndedAt = m.now()
		}
		return nil
	})
}

func (m *memoryRepository) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
