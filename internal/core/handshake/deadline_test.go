package handshake

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackedPipe(t *testing.T) (*DeadlineConn, *clock.Mock) {
	t.Helper()
	c, _ := pipe(t)
	mock := clock.NewMock()
	mock.Set(time.Now())
	return TrackDeadlines(c), mock
}

func TestWithReadDeadline_RestoresOuterDeadline(t *testing.T) {
	dc, mock := trackedPipe(t)
	outer := mock.Now().Add(time.Hour)
	require.NoError(t, dc.SetReadDeadline(outer))

	err := withReadDeadline(dc, mock, 5*time.Second, func() error {
		assert.Equal(t, mock.Now().Add(5*time.Second), dc.ReadDeadline())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, outer, dc.ReadDeadline())
}

func TestWithReadDeadline_EarlierOuterDeadlineWins(t *testing.T) {
	dc, mock := trackedPipe(t)
	outer := mock.Now().Add(time.Second)
	require.NoError(t, dc.SetReadDeadline(outer))

	err := withReadDeadline(dc, mock, time.Hour, func() error {
		assert.Equal(t, outer, dc.ReadDeadline())
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, outer, dc.ReadDeadline())
}

// 作用域内被取消逻辑改写的截止时间在作用域结束后保留
func TestWithReadDeadline_KeepsDeadlineSetDuringScope(t *testing.T) {
	dc, mock := trackedPipe(t)
	expired := time.Unix(1, 0)

	err := withReadDeadline(dc, mock, 5*time.Second, func() error {
		return dc.SetDeadline(expired)
	})
	require.NoError(t, err)
	assert.Equal(t, expired, dc.ReadDeadline())

	_, err = dc.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	// 后续作用域沿用已过期的截止时间
	err = withReadDeadline(dc, mock, 5*time.Second, func() error {
		_, err := dc.Read(make([]byte, 1))
		return err
	})
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestTrackDeadlines_Idempotent(t *testing.T) {
	dc, _ := trackedPipe(t)
	assert.Same(t, dc, TrackDeadlines(dc))
}
