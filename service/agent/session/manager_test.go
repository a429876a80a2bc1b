package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"crm-agent-backend/model"
	"crm-agent-backend/service/agent/session"
	"crm-agent-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingArchiver struct {
	archived []*model.Session
	fail     map[string]bool
}

func (a *recordingArchiver) Archive(ctx context.Context, s *model.Session) error {
	if a.fail[s.ID] {
		return errors.New("oss unavailable")
	}
	a.archived = append(a.archived, s)
	return nil
}

func newManager(t *testing.T, opts ...session.Option) (*session.Manager, *gorm.DB, *fakeClock) {
	t.Helper()
	db := testutil.NewDB(t)
	clock := newClock()
	opts = append([]session.Option{session.WithClock(clock.Now)}, opts...)
	return session.NewManager(db, opts...), db, clock
}

func userMessage(content string) model.SessionMessage {
	return model.SessionMessage{Role: model.RoleUser, Content: content}
}

func TestGetOrCreateSession_SameScopeReturnsSameSession(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	first, err := m.GetOrCreateSession(ctx, "user-1", "dashboard", "", "")
	require.NoError(t, err)
	assert.Empty(t, first.Messages)
	assert.Equal(t, clock.Now().Add(session.DefaultTTL), first.ExpiresAt)

	clock.Advance(time.Hour)
	second, err := m.GetOrCreateSession(ctx, "user-1", "dashboard", "", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "7")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	otherUser, err := m.GetOrCreateSession(ctx, "user-2", "dashboard", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, otherUser.ID)

	entityScoped, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "8")
	require.NoError(t, err)
	assert.NotEqual(t, other.ID, entityScoped.ID)
}

func TestGetOrCreateSession_ExpiryIsFixed(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	s, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	expiresAt := s.ExpiresAt

	// 活动不会续期
	clock.Advance(6 * 24 * time.Hour)
	require.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage("olá")))
	again, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
	assert.True(t, expiresAt.Equal(again.ExpiresAt))
	require.Len(t, again.Messages, 1)

	clock.Advance(24*time.Hour + time.Second)
	renewed, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, renewed.ID)
	assert.Empty(t, renewed.Messages)
}

func TestAddMessageToSession_KeepsMostRecent(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	s, err := m.GetOrCreateSession(ctx, "user-1", "tasks", "", "")
	require.NoError(t, err)

	for i := 1; i <= 51; i++ {
		clock.Advance(time.Second)
		require.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage(fmt.Sprintf("msg %d", i))))
	}

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, session.DefaultMaxMessages)
	for i, msg := range got.Messages {
		assert.Equal(t, fmt.Sprintf("msg %d", i+2), msg.Content)
	}
	assert.True(t, clock.Now().Equal(got.UpdatedAt))
}

func TestAddMessageToSession_TurnTrimmedTogether(t *testing.T) {
	m, _, _ := newManager(t, session.WithMaxMessages(3))
	ctx := context.Background()

	s, err := m.GetOrCreateSession(ctx, "user-1", "tasks", "", "")
	require.NoError(t, err)

	require.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage("a"), userMessage("b")))
	require.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage("c"), userMessage("d")))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	var contents []string
	for _, msg := range got.Messages {
		contents = append(contents, msg.Content)
	}
	assert.Equal(t, []string{"b", "c", "d"}, contents)
}

func TestAddMessageToSession_MissingSessionIsNoop(t *testing.T) {
	m, db, _ := newManager(t)

	require.NoError(t, m.AddMessageToSession(context.Background(), "missing", userMessage("olá")))

	var n int64
	require.NoError(t, db.Model(&model.SessionMessage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAddMessageToSession_ConcurrentWritersLoseNothing(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	s, err := m.GetOrCreateSession(ctx, "user-1", "dashboard", "", "")
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage(fmt.Sprintf("w%d", i))))
		}()
	}
	wg.Wait()

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, writers)
	for i := 1; i < len(got.Messages); i++ {
		assert.Greater(t, got.Messages[i].Seq, got.Messages[i-1].Seq)
	}
}

func TestGetOrCreateSession_ConcurrentFirstMessagesShareSession(t *testing.T) {
	m, db, _ := newManager(t)
	ctx := context.Background()

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.GetOrCreateSession(ctx, "u1", "dashboard", "", "")
			if assert.NoError(t, err) {
				ids[i] = s.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&model.Session{}).
		Where("user_id = ? AND page = ?", "u1", "dashboard").
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetOrCreateSession_ExpiredSessionReleasesScope(t *testing.T) {
	m, db, clock := newManager(t)
	ctx := context.Background()

	old, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "9")
	require.NoError(t, err)

	clock.Advance(session.DefaultTTL)
	renewed, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "9")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, renewed.ID)

	// 旧行保留给清理任务
	var stale model.Session
	require.NoError(t, db.Where("id = ?", old.ID).First(&stale).Error)
	assert.Nil(t, stale.ScopeKey)
	require.NotNil(t, renewed.ScopeKey)
}

func TestClearSession(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	s, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "3")
	require.NoError(t, err)
	require.NoError(t, m.AddMessageToSession(ctx, s.ID, userMessage("a"), userMessage("b")))

	clock.Advance(time.Minute)
	require.NoError(t, m.ClearSession(ctx, s.ID))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, "client", got.EntityType)
	assert.Equal(t, "3", got.EntityID)

	same, err := m.GetOrCreateSession(ctx, "user-1", "clients", "client", "3")
	require.NoError(t, err)
	assert.Equal(t, s.ID, same.ID)
}

func TestGetSession_NotFound(t *testing.T) {
	m, _, _ := newManager(t)

	_, err := m.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestGetRecentSessions(t *testing.T) {
	m, _, clock := newManager(t)
	ctx := context.Background()

	old, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	mid, err := m.GetOrCreateSession(ctx, "user-1", "tasks", "", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = m.GetOrCreateSession(ctx, "user-2", "tasks", "", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	newest, err := m.GetOrCreateSession(ctx, "user-1", "map", "", "")
	require.NoError(t, err)

	// 追加消息使最旧的会话变为最近更新
	clock.Advance(time.Minute)
	require.NoError(t, m.AddMessageToSession(ctx, old.ID, userMessage("olá")))

	recent, err := m.GetRecentSessions(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, old.ID, recent[0].ID)
	assert.Equal(t, newest.ID, recent[1].ID)

	all, err := m.GetRecentSessions(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, mid.ID, all[2].ID)

	clock.Advance(session.DefaultTTL)
	expired, err := m.GetRecentSessions(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestCleanupExpiredSessions_DeletesOnlyStrictlyExpired(t *testing.T) {
	m, db, clock := newManager(t)
	ctx := context.Background()

	first, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	require.NoError(t, m.AddMessageToSession(ctx, first.ID, userMessage("a")))

	clock.Advance(time.Hour)
	second, err := m.GetOrCreateSession(ctx, "user-1", "tasks", "", "")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	third, err := m.GetOrCreateSession(ctx, "user-2", "tasks", "", "")
	require.NoError(t, err)

	// 此时 first 已过期，second 恰好到期（不删除），third 未过期
	clock.Advance(session.DefaultTTL - time.Hour)
	require.Equal(t, second.ExpiresAt, clock.Now())

	n, err := m.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = m.GetSession(ctx, first.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	var orphaned int64
	require.NoError(t, db.Model(&model.SessionMessage{}).Where("session_id = ?", first.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	_, err = m.GetSession(ctx, second.ID)
	assert.NoError(t, err)
	_, err = m.GetSession(ctx, third.ID)
	assert.NoError(t, err)

	renewed, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, renewed.ID)
}

func TestCleanupExpiredSessions_Archives(t *testing.T) {
	archiver := &recordingArchiver{fail: map[string]bool{}}
	m, _, clock := newManager(t, session.WithArchiver(archiver))
	ctx := context.Background()

	kept, err := m.GetOrCreateSession(ctx, "user-1", "sales", "", "")
	require.NoError(t, err)
	archived, err := m.GetOrCreateSession(ctx, "user-1", "tasks", "", "")
	require.NoError(t, err)
	require.NoError(t, m.AddMessageToSession(ctx, archived.ID, userMessage("a"), userMessage("b")))
	archiver.fail[kept.ID] = true

	clock.Advance(session.DefaultTTL + time.Second)
	n, err := m.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.Len(t, archiver.archived, 1)
	assert.Equal(t, archived.ID, archiver.archived[0].ID)
	assert.Len(t, archiver.archived[0].Messages, 2)

	// 归档失败的会话保留到下一次清理
	_, err = m.GetSession(ctx, kept.ID)
	assert.NoError(t, err)

	delete(archiver.fail, kept.ID)
	n, err = m.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
