package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/models"
)

type stubStore struct {
	values   map[string]string
	allCalls int
	ensured  int
	allErr   error
}

func (s *stubStore) EnsureDefaults(_ context.Context, defaults map[string]string) error {
	s.ensured++
	if s.values == nil {
		s.values = map[string]string{}
	}
	for k, v := range defaults {
		if _, ok := s.values[k]; !ok {
			s.values[k] = v
		}
	}
	return nil
}

func (s *stubStore) All(context.Context) ([]models.Setting, error) {
	s.allCalls++
	if s.allErr != nil {
		return nil, s.allErr
	}
	var out []models.Setting
	for k, v := range s.values {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (s *stubStore) Upsert(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func TestServiceCachesUntilUpdate(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	if !svc.RegistrationsOpen(ctx) {
		t.Fatal("expected registrations open by default")
	}
	if svc.LoginAttemptLimit(ctx) != 5 {
		t.Fatalf("expected default limit of 5, got %d", svc.LoginAttemptLimit(ctx))
	}
	if store.allCalls != 1 || store.ensured != 1 {
		t.Fatalf("expected a single load, got all=%d ensure=%d", store.allCalls, store.ensured)
	}

	if err := svc.Update(ctx, AllowRegistrations, "0"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if svc.RegistrationsOpen(ctx) {
		t.Fatal("expected registrations closed after update")
	}
	if store.allCalls != 2 {
		t.Fatalf("expected reload after update, got %d loads", store.allCalls)
	}
	if store.ensured != 1 {
		t.Fatalf("defaults should only be ensured once, got %d", store.ensured)
	}
}

func TestServiceExpiresCache(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	svc.Get(ctx, SiteName)
	store.values[SiteName] = "Renamed"
	if got := svc.Get(ctx, SiteName); got != "StudyBud" {
		t.Fatalf("expected cached value, got %q", got)
	}

	now = now.Add(2 * time.Second)
	if got := svc.Get(ctx, SiteName); got != "Renamed" {
		t.Fatalf("expected refreshed value, got %q", got)
	}
}

func TestServiceRejectsUnknownAndMalformed(t *testing.T) {
	svc := NewService(&stubStore{values: map[string]string{}}, time.Minute)
	ctx := context.Background()

	cases := map[string]string{
		"favourite_colour": "blue",
		MaintenanceMode:    "yes",
		MaxLoginAttempts:   "-1",
		SiteName:           "  ",
	}
	for key, value := range cases {
		if err := svc.Update(ctx, key, value); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("Update(%q, %q) = %v, want validation error", key, value, err)
		}
	}
}

func TestServiceFallsBackToDefaultsOnError(t *testing.T) {
	svc := NewService(&stubStore{allErr: errors.New("down")}, time.Minute)
	ctx := context.Background()

	if svc.MaintenanceEnabled(ctx) {
		t.Fatal("expected maintenance off when settings cannot be read")
	}
	if _, err := svc.All(ctx); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
