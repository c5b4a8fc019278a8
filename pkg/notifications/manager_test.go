package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/notifications"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, notif notifications.Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notifications.Notification), args.Error(1)
}

func (m *MockStorage) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, notif notifications.Notification) error {
	args := m.Called(ctx, notif)
	return args.Error(0)
}

func TestManager_Send(t *testing.T) {
	t.Parallel()

	t.Run("fills defaults and delivers", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		storage := notifications.NewMemoryStorage()
		deliverer := new(MockDeliverer)
		deliverer.On("Deliver", mock.Anything, mock.MatchedBy(func(n notifications.Notification) bool {
			return n.ID != "" && n.CreatedAt.Equal(now) && n.Variant == notifications.VariantDefault
		})).Return(nil).Once()

		m := notifications.NewManager(storage, deliverer, notifications.WithClock(func() time.Time { return now }))
		sent, err := m.Send(context.Background(), notifications.Notification{Title: "Hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, sent.ID)

		list, err := m.List(context.Background(), notifications.Anonymous, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, sent, list[0])
		deliverer.AssertExpectations(t)
	})

	t.Run("delivery failure is not an error", func(t *testing.T) {
		t.Parallel()

		deliverer := new(MockDeliverer)
		deliverer.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("offline"))

		m := notifications.NewManager(notifications.NewMemoryStorage(), deliverer)
		_, err := m.Send(context.Background(), notifications.Success("Saved", ""))
		assert.NoError(t, err)
	})

	t.Run("storage failure skips delivery", func(t *testing.T) {
		t.Parallel()

		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		deliverer := new(MockDeliverer)

		m := notifications.NewManager(storage, deliverer)
		_, err := m.Send(context.Background(), notifications.Info("Hi", ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)

		assert.NotPanics(t, func() {
			m.Notify(context.Background(), notifications.Info("Hi", ""))
		})
	})
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	require.ErrorIs(t, s.Create(ctx, notifications.Notification{}), notifications.ErrMissingID)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Create(ctx, notifications.Notification{ID: id, UserID: "u1"}))
	}

	list, err := s.List(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].ID)
	assert.Equal(t, "2", list[1].ID)

	require.NoError(t, s.Clear(ctx, "u1"))
	list, err = s.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBroadcastDeliverer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := notifications.NewBroadcastDeliverer(4)
	defer d.Close()

	mine := d.Subscribe(ctx, "u1")
	others := d.Subscribe(ctx, "u2")

	m := notifications.NewManager(nil, d)
	m.Notify(ctx, notifications.Destructive("Login failed", "nope").For("u1"))

	select {
	case msg := <-mine.Receive(ctx):
		assert.Equal(t, "Login failed", msg.Data.Title)
		assert.True(t, msg.Data.IsError())
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	select {
	case msg := <-others.Receive(ctx):
		t.Fatalf("unexpected delivery: %+v", msg)
	default:
	}

	require.NoError(t, d.Close())
	_, open := <-mine.Receive(ctx)
	assert.False(t, open)
}
