package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/db"
	"expensetracker/internal/events"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	gormDB, err := db.Open(config.DBDriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(gormDB)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedUser(t *testing.T, store repository.Store, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func seedCategory(t *testing.T, store repository.Store, userID uint, name string) *model.Category {
	t.Helper()
	category := &model.Category{Name: name, UserID: userID}
	require.NoError(t, store.Categories().Create(context.Background(), category))
	return category
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}
