package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/database/testutil"
	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/notify"
	"github.com/charlesng35/lifeadmin/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingDispatcher struct {
	calls []dispatchCall
}

type dispatchCall struct {
	to    notify.Recipient
	msg   notify.Message
	prefs notify.Preferences
}

func (d *recordingDispatcher) Dispatch(_ context.Context, to notify.Recipient, msg notify.Message, prefs notify.Preferences) notify.DispatchResult {
	d.calls = append(d.calls, dispatchCall{to: to, msg: msg, prefs: prefs})
	var out notify.DispatchResult
	if prefs.Email {
		out.Email = notify.Delivered("mail-" + msg.ID)
	}
	return out
}

// blindStore hides existing references from the guard so the unique index is exercised.
type blindStore struct {
	*store.Store
}

func (b blindStore) HasReference(context.Context, store.ReferenceQuery) (bool, error) {
	return false, nil
}

func newTestStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)
	return st, db
}

func seedUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	user := models.User{
		BaseModel: models.BaseModel{ID: id},
		Name:      "User " + id,
		Email:     id + "@example.com",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
