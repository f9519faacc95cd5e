package testsupport

import (
	"context"
	"testing"

	"serialscan/internal/config"
	"serialscan/internal/sessions"
)

// MustOpenStore opens a sessions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartSession creates a new active session for tests using the provided store.
func StartSession(t testing.TB, store *sessions.Store, id string) *sessions.Session {
	t.Helper()

	session, err := store.Start(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Start: %v", err)
	}
	return session
}
