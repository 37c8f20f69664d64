package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/socialpulse/internal/social"
)

// ProfileStore keeps scraped profiles and posts in process memory.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]social.Profile
	posts    map[string][]social.Post
}

// NewProfileStore creates an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]social.Profile),
		posts:    make(map[string][]social.Post),
	}
}

// SaveProfile stores or replaces the profile keyed by username.
func (s *ProfileStore) SaveProfile(_ context.Context, profile social.Profile) error {
	if profile.Username == "" {
		return fmt.Errorf("username is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Username] = profile
	return nil
}

// SavePosts merges posts into the stored set for username, replacing
// entries whose id already exists.
func (s *ProfileStore) SavePosts(_ context.Context, username string, posts []social.Post) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.posts[username]
	index := make(map[string]int, len(existing))
	for i, p := range existing {
		if p.ID != "" {
			index[p.ID] = i
		}
	}
	for _, p := range posts {
		if p.ID == "" {
			existing = append(existing, p)
			continue
		}
		if i, ok := index[p.ID]; ok {
			existing[i] = p
			continue
		}
		index[p.ID] = len(existing)
		existing = append(existing, p)
	}
	s.posts[username] = existing
	return nil
}

// GetProfile returns the stored profile for username.
func (s *ProfileStore) GetProfile(_ context.Context, username string) (social.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[username]
	if !ok {
		return social.Profile{}, fmt.Errorf("profile %s: %w", username, social.ErrNotFound)
	}
	return p, nil
}

// ListPosts returns up to limit stored posts for username, most
// recently saved first.
func (s *ProfileStore) ListPosts(_ context.Context, username string, limit int) ([]social.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.posts[username]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]social.Post, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
