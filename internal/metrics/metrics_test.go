package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	dispatchermocks "github.com/ykvlv/water-reminder-bot/internal/dispatcher/mocks"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
)

type stubBroadcaster struct {
	res dispatcher.BatchResult
	err error
}

func (s stubBroadcaster) Broadcast(context.Context, string) (dispatcher.BatchResult, error) {
	return s.res, s.err
}

func TestSender_CountsOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := dispatchermocks.NewMockSender(ctrl)
	next.EXPECT().Send(gomock.Any(), registry.ChatID(1), "hi").Return(nil)
	next.EXPECT().Send(gomock.Any(), registry.ChatID(2), "hi").Return(errors.New("blocked"))

	m := New(nil)
	s := m.Sender(next)
	require.NoError(t, s.Send(context.Background(), 1, "hi"))
	require.Error(t, s.Send(context.Background(), 2, "hi"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sendDuration))
}

func TestBroadcaster_Status(t *testing.T) {
	m := New(nil)

	_, _ = m.Broadcaster(stubBroadcaster{res: dispatcher.BatchResult{Attempted: 2, Succeeded: 2}}).Broadcast(context.Background(), "x")
	_, _ = m.Broadcaster(stubBroadcaster{res: dispatcher.BatchResult{Attempted: 2, Succeeded: 1, Failed: 1, Evicted: 1}}).Broadcast(context.Background(), "x")
	_, _ = m.Broadcaster(stubBroadcaster{}).Broadcast(context.Background(), "x")
	_, err := m.Broadcaster(stubBroadcaster{err: errors.New("bug")}).Broadcast(context.Background(), "x")
	require.Error(t, err)

	for _, status := range []string{"ok", "partial", "empty", "error"} {
		assert.Equalf(t, 1.0, testutil.ToFloat64(m.broadcasts.WithLabelValues(status)), "status %s", status)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
}

func TestHandler_ExposesSubscribers(t *testing.T) {
	m := New(func() int { return 3 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reminder_subscribers 3")
}
