// Package settings serves the site-wide key-value settings with a short-lived cache.
package settings

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
)

// Known setting keys.
const (
	SiteName           = "site_name"
	SiteDescription    = "site_description"
	AllowRegistrations = "allow_registrations"
	MaxLoginAttempts   = "max_login_attempts"
	MaintenanceMode    = "maintenance_mode"
)

// Defaults holds the value every known key starts with.
var Defaults = map[string]string{
	SiteName:           "StudyBud",
	SiteDescription:    "A modern e-learning platform",
	AllowRegistrations: "1",
	MaxLoginAttempts:   "5",
	MaintenanceMode:    "0",
}

// Store is the persistence the settings service needs.
type Store interface {
	EnsureDefaults(ctx context.Context, defaults map[string]string) error
	All(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, key, value string) error
}

// Service reads settings through a TTL cache that is dropped on every update.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	values  map[string]string
	expires time.Time
	seeded  bool
}

// NewService returns a Service caching reads for ttl.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// All returns every setting, inserting the defaults on first use.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	now := s.now()

	s.mu.RLock()
	if s.values != nil && now.Before(s.expires) {
		out := copyMap(s.values)
		s.mu.RUnlock()
		return out, nil
	}
	seeded := s.seeded
	s.mu.RUnlock()

	if !seeded {
		if err := s.store.EnsureDefaults(ctx, Defaults); err != nil {
			logging.FromContext(ctx).Error("failed to insert default settings", "error", err)
			return nil, apperr.Persistence(err, "unable to load settings")
		}
	}

	rows, err := s.store.All(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("failed to load settings", "error", err)
		return nil, apperr.Persistence(err, "unable to load settings")
	}

	values := make(map[string]string, len(rows))
	for k, v := range Defaults {
		values[k] = v
	}
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	s.mu.Lock()
	s.values = values
	s.expires = now.Add(s.ttl)
	s.seeded = true
	s.mu.Unlock()

	return copyMap(values), nil
}

// List returns every setting as sorted rows.
func (s *Service) List(ctx context.Context) ([]models.Setting, error) {
	values, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Setting, 0, len(values))
	for k, v := range values {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns the value stored under key, falling back to its default when the
// store cannot be read.
func (s *Service) Get(ctx context.Context, key string) string {
	values, err := s.All(ctx)
	if err != nil {
		return Defaults[key]
	}
	return values[key]
}

// Update stores value under a known key and drops the cache.
func (s *Service) Update(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if _, ok := Defaults[key]; !ok {
		return apperr.Validation("unknown setting %q", key)
	}
	value = strings.TrimSpace(value)

	switch key {
	case AllowRegistrations, MaintenanceMode:
		if value != "0" && value != "1" {
			return apperr.Validation("%s must be 0 or 1", key)
		}
	case MaxLoginAttempts:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return apperr.Validation("%s must be a non-negative number", key)
		}
	case SiteName:
		if value == "" {
			return apperr.Validation("site name is required")
		}
	}

	if err := s.store.Upsert(ctx, key, value); err != nil {
		logging.FromContext(ctx).Error("failed to update setting", "key", key, "error", err)
		return apperr.OperationFailed(err, "unable to update setting")
	}

	s.Invalidate()
	return nil
}

// Invalidate drops the cached values.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.values = nil
	s.mu.Unlock()
}

// RegistrationsOpen reports whether self-service sign up is enabled.
func (s *Service) RegistrationsOpen(ctx context.Context) bool {
	return s.Get(ctx, AllowRegistrations) == "1"
}

// MaintenanceEnabled reports whether the site is in maintenance mode.
func (s *Service) MaintenanceEnabled(ctx context.Context) bool {
	return s.Get(ctx, MaintenanceMode) == "1"
}

// LoginAttemptLimit returns the allowed failed logins before lockout. Zero disables it.
func (s *Service) LoginAttemptLimit(ctx context.Context) int {
	n, err := strconv.Atoi(s.Get(ctx, MaxLoginAttempts))
	if err != nil || n < 0 {
		n, _ = strconv.Atoi(Defaults[MaxLoginAttempts])
	}
	return n
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
