package repository

import (
	"context"
	"sync"
	"time"

	"stayhold/internal/models"
)

// MemoryResumeStore is the in-process fallback when Redis is down.
// Entries expire on read past their TTL.
type MemoryResumeStore struct {
	resumes sync.Map
	ttl     time.Duration
}

type memoryEntry struct {
	resume    *models.SessionResume
	expiresAt time.Time
}

func NewMemoryResumeStore(ttl time.Duration) *MemoryResumeStore {
	return &MemoryResumeStore{
		ttl: ttl,
	}
}

func (r *MemoryResumeStore) Get(ctx context.Context, userID int64) (*models.SessionResume, error) {
	val, ok := r.resumes.Load(userID)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.resumes.Delete(userID)
		return nil, nil
	}
	return entry.resume, nil
}

func (r *MemoryResumeStore) Set(ctx context.Context, resume *models.SessionResume) error {
	resume.SavedAt = time.Now()
	r.resumes.Store(resume.UserID, &memoryEntry{
		resume:    resume,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryResumeStore) Clear(ctx context.Context, userID int64) error {
	r.resumes.Delete(userID)
	return nil
}
