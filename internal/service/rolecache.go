package service

import (
	"sync"
	"time"

	"camly/internal/domain"
	"camly/internal/repository"
)

// RoleCache is a time-bounded cache of user roles for admin checks on hot
// paths. Role changes must call Invalidate; entries also expire after ttl.
type RoleCache struct {
	users *repository.UserRepository
	ttl   time.Duration

	mu      sync.Mutex
	entries map[uint]roleEntry
}

type roleEntry struct {
	role    string
	expires time.Time
}

func NewRoleCache(users *repository.UserRepository, ttl time.Duration) *RoleCache {
	return &RoleCache{
		users:   users,
		ttl:     ttl,
		entries: make(map[uint]roleEntry),
	}
}

func (c *RoleCache) Role(userID uint) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.role, nil
	}
	c.mu.Unlock()

	u, err := c.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[userID] = roleEntry{role: u.Role, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return u.Role, nil
}

func (c *RoleCache) IsAdmin(userID uint) (bool, error) {
	role, err := c.Role(userID)
	if err != nil {
		return false, err
	}
	return role == domain.RoleAdmin, nil
}

// Invalidate drops the cached role after a role change.
func (c *RoleCache) Invalidate(userID uint) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
