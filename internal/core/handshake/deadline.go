package handshake

import (
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// ReadDeadliner 可查询当前读截止时间的连接
type ReadDeadliner interface {
	ReadDeadline() time.Time
}

// DeadlineConn 记录最近一次设置的读截止时间
//
// 握手的作用域超时据此恢复外层设置的截止时间，而不是一律清零。
type DeadlineConn struct {
	net.Conn

	mu   sync.Mutex
	read time.Time
}

// TrackDeadlines 包装连接以记录读截止时间
func TrackDeadlines(conn net.Conn) *DeadlineConn {
	if dc, ok := conn.(*DeadlineConn); ok {
		return dc
	}
	return &DeadlineConn{Conn: conn}
}

// SetDeadline 同时设置读写截止时间
func (c *DeadlineConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.read = t
	return c.Conn.SetDeadline(t)
}

// SetReadDeadline 设置读截止时间
func (c *DeadlineConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.read = t
	return c.Conn.SetReadDeadline(t)
}

// ReadDeadline 最近一次设置的读截止时间
func (c *DeadlineConn) ReadDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read
}

// withReadDeadline 为 fn 期间的阻塞读设置超时，返回前恢复原截止时间
//
// conn 实现 ReadDeadliner 时：已有更早的截止时间则沿用；作用域内被他人
// 改写的截止时间不会被覆盖。其余连接无从得知原值，返回前清零。
func withReadDeadline(conn Conn, clk clock.Clock, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	deadline := clk.Now().Add(timeout)
	var prev time.Time
	tracker, tracked := conn.(ReadDeadliner)
	if tracked {
		prev = tracker.ReadDeadline()
		if !prev.IsZero() && prev.Before(deadline) {
			deadline = prev
		}
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return types.NewTransportError("set read deadline", err)
	}
	defer func() {
		if tracked && !tracker.ReadDeadline().Equal(deadline) {
			return
		}
		if err := conn.SetReadDeadline(prev); err != nil {
			log.Debug("restore read deadline failed", "err", err)
		}
	}()
	return fn()
}
