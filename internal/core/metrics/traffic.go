package metrics

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// TrafficCounter 握手连接流量计数器
//
// 使用原子操作实现并发安全的计数器，速率由 RateMeter 计算。
type TrafficCounter struct {
	totalIn     atomic.Int64
	totalOut    atomic.Int64
	connections atomic.Int64

	inRate  *RateMeter
	outRate *RateMeter
}

// NewTrafficCounter 创建流量计数器
func NewTrafficCounter(window time.Duration, clk clock.Clock) *TrafficCounter {
	return &TrafficCounter{
		inRate:  NewRateMeter(window, clk),
		outRate: NewRateMeter(window, clk),
	}
}

// LogRecv 记录入站字节
func (t *TrafficCounter) LogRecv(n int64) {
	if n <= 0 {
		return
	}
	t.totalIn.Add(n)
	t.inRate.Add(n)
}

// LogSent 记录出站字节
func (t *TrafficCounter) LogSent(n int64) {
	if n <= 0 {
		return
	}
	t.totalOut.Add(n)
	t.outRate.Add(n)
}

// Totals 返回当前统计
func (t *TrafficCounter) Totals() Stats {
	return Stats{
		TotalIn:     t.totalIn.Load(),
		TotalOut:    t.totalOut.Load(),
		RateIn:      t.inRate.Rate(),
		RateOut:     t.outRate.Rate(),
		Connections: t.connections.Load(),
	}
}

// Reset 重置所有统计
func (t *TrafficCounter) Reset() {
	t.totalIn.Store(0)
	t.totalOut.Store(0)
	t.connections.Store(0)
	t.inRate.Reset()
	t.outRate.Reset()
}

// Wrap 包装连接，统计经过的字节
//
// t 为 nil 时原样返回 conn。
func (t *TrafficCounter) Wrap(conn net.Conn) net.Conn {
	if t == nil {
		return conn
	}
	t.connections.Add(1)
	return &countingConn{Conn: conn, counter: t}
}

// countingConn 统计读写字节的连接
type countingConn struct {
	net.Conn
	counter *TrafficCounter
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.counter.LogRecv(int64(n))
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.counter.LogSent(int64(n))
	return n, err
}
