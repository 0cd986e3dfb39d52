package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	dispatchermocks "github.com/ykvlv/water-reminder-bot/internal/dispatcher/mocks"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
	"github.com/ykvlv/water-reminder-bot/internal/scheduler"
)

func newService(t *testing.T, sender dispatcher.Sender, opts Options) *Service {
	t.Helper()
	cal, err := domain.NewCalendar([]string{"09:00", "13:00", "15:00", "17:00", "23:00"}, "пить воду")
	require.NoError(t, err)
	return New(cal, registry.New(), sender, zap.NewNop(), opts)
}

func TestService_SubscribeUnsubscribe(t *testing.T) {
	s := newService(t, dispatchermocks.NewMockSender(gomock.NewController(t)), Options{})

	assert.True(t, s.Subscribe(100))
	assert.False(t, s.Subscribe(100))
	assert.Equal(t, 1, s.SubscriberCount())
	assert.True(t, s.IsSubscribed(100))

	assert.False(t, s.Unsubscribe(200))
	assert.Equal(t, 1, s.SubscriberCount())

	assert.True(t, s.Unsubscribe(100))
	assert.False(t, s.IsSubscribed(100))
	assert.Zero(t, s.SubscriberCount())
}

func TestService_Queries(t *testing.T) {
	s := newService(t, dispatchermocks.NewMockSender(gomock.NewController(t)), Options{})

	assert.Equal(t, []string{"09:00", "13:00", "15:00", "17:00", "23:00"}, s.ListTriggerTimes())
	assert.Len(t, s.TriggerTimes(), 5)

	loc := time.FixedZone("MSK", 3*60*60)
	next, ok := s.NextReminder(time.Date(2025, time.May, 5, 16, 0, 0, 0, loc))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.May, 5, 17, 0, 0, 0, loc), next)
}

func TestService_TestBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := dispatchermocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), registry.ChatID(1), "пить воду").Return(nil)
	sender.EXPECT().Send(gomock.Any(), registry.ChatID(2), "пить воду").Return(errors.New("chat not found"))

	wrapped := 0
	s := newService(t, sender, Options{
		Dispatch: dispatcher.Options{EvictAfter: 1},
		Wrap: func(b scheduler.Broadcaster) scheduler.Broadcaster {
			wrapped++
			return b
		},
	})
	s.Subscribe(1)
	s.Subscribe(2)

	res, err := s.TestBroadcast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, wrapped)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, s.IsSubscribed(2))
	assert.Equal(t, 1, s.SubscriberCount())
}

func TestService_UnsubscribeForgetsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := dispatchermocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), registry.ChatID(1), gomock.Any()).Return(errors.New("timeout"))

	s := newService(t, sender, Options{Dispatch: dispatcher.Options{EvictAfter: 3}})
	s.Subscribe(1)
	_, _ = s.TestBroadcast(context.Background())
	assert.Equal(t, 1, s.disp.FailureCount(1))

	s.Unsubscribe(1)
	assert.Zero(t, s.disp.FailureCount(1))
}

func TestService_RunReturnsOnCancel(t *testing.T) {
	s := newService(t, dispatchermocks.NewMockSender(gomock.NewController(t)), Options{
		Schedule: scheduler.Options{Interval: time.Millisecond},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
}
