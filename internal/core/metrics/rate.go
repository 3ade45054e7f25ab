package metrics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// RateMeter - 速率计算器
// ============================================================================

// RateMeter 速率计算器（基于滑动窗口）
//
// 窗口按 1 秒分桶，Rate 返回窗口内的平均速率。
type RateMeter struct {
	mu       sync.Mutex
	clock    clock.Clock
	buckets  []int64   // 每秒一个桶
	lastIdx  int       // 最后写入的桶索引
	lastTime time.Time // 最后推进时间
}

// NewRateMeter 创建速率计算器
//
// window 向下取整到秒，至少 1 秒；clk 为 nil 时使用系统时钟。
func NewRateMeter(window time.Duration, clk clock.Clock) *RateMeter {
	if clk == nil {
		clk = clock.New()
	}
	n := int(window / time.Second)
	if n < 1 {
		n = 1
	}
	return &RateMeter{
		clock:    clk,
		buckets:  make([]int64, n),
		lastTime: clk.Now(),
	}
}

// advance 按经过的整秒数推进桶，调用方持有锁
func (r *RateMeter) advance() {
	now := r.clock.Now()
	elapsed := now.Sub(r.lastTime)
	if elapsed < time.Second {
		return
	}

	seconds := int(elapsed / time.Second)
	if seconds >= len(r.buckets) {
		// 超过整个窗口没有数据
		for i := range r.buckets {
			r.buckets[i] = 0
		}
		r.lastIdx = 0
	} else {
		for i := 0; i < seconds; i++ {
			r.lastIdx = (r.lastIdx + 1) % len(r.buckets)
			r.buckets[r.lastIdx] = 0
		}
	}
	r.lastTime = r.lastTime.Add(time.Duration(seconds) * time.Second)
}

// Add 添加字节数到当前桶
func (r *RateMeter) Add(bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	r.buckets[r.lastIdx] += bytes
}

// Rate 返回窗口内的平均速率（字节/秒）
func (r *RateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance()
	var total int64
	for _, v := range r.buckets {
		total += v
	}
	return float64(total) / float64(len(r.buckets))
}

// Window 返回统计窗口
func (r *RateMeter) Window() time.Duration {
	return time.Duration(len(r.buckets)) * time.Second
}

// Reset 重置速率计算器
func (r *RateMeter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.buckets {
		r.buckets[i] = 0
	}
	r.lastIdx = 0
	r.lastTime = r.clock.Now()
}
