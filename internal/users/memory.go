package users

import (
	"context"
	"sync"
	"time"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository is a simple in-memory Repository used for unit tests and
// for local development without a MongoDB instance. Semantics mirror the
// Mongo implementation, including the uniqueness constraint on subjectId.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.SubjectID]; ok {
		return nil, ErrDuplicateSubject
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	cp := *u
	m.store[u.SubjectID] = &cp
	return u, nil
}

func (m *MemoryRepository) FindBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdateBySubject(ctx context.Context, subjectID string, p *models.Patch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Email = p.Email
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.PhotoURL = p.PhotoURL
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) DeleteBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.store, subjectID)
	return u, nil
}
