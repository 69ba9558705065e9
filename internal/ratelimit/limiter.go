// Package ratelimit 实现固定窗口整体重置式的限流器。
// 窗口过期后整个配额重置，不做连续滚动。
package ratelimit

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type window struct {
	count   int
	resetAt time.Time
}

// Result 是一次限流检查的结论
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time // 不允许时调用方应把它当作重试时间
}

// Limiter 按 identifier 维护请求计数，进程级单例，各请求共享
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	states      map[string]*window
	sweeper     *cron.Cron
	nowFunc     func() time.Time
}

// New 创建限流器：每 window 时长最多 maxRequests 次
func New(maxRequests int, windowDur time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      windowDur,
		states:      make(map[string]*window),
		nowFunc:     time.Now,
	}
}

// Check 检查并记账一次请求
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	st, ok := l.states[identifier]
	if !ok || now.After(st.resetAt) {
		// 没有状态或窗口已过期：开新窗口
		st = &window{count: 1, resetAt: now.Add(l.window)}
		l.states[identifier] = st
		return Result{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: st.resetAt}
	}

	if st.count >= l.maxRequests {
		// 窗口内配额用尽，resetAt 保持不变
		return Result{Allowed: false, Remaining: 0, ResetAt: st.resetAt}
	}

	st.count++
	return Result{Allowed: true, Remaining: l.maxRequests - st.count, ResetAt: st.resetAt}
}

// Reset 无条件清掉某个 identifier 的状态 (管理用的后门)
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, identifier)
}

// StartSweeper 启动定期清扫：剔除窗口已过期的 identifier，防止内存无限增长。
// 清扫只是回收内存，对 Check 的行为没有任何影响。
func (l *Limiter) StartSweeper() {
	if l.sweeper != nil {
		return
	}
	l.sweeper = cron.New()
	l.sweeper.AddFunc("@every 5m", l.sweep)
	l.sweeper.Start()
}

// StopSweeper 停止清扫任务
func (l *Limiter) StopSweeper() {
	if l.sweeper != nil {
		l.sweeper.Stop()
		l.sweeper = nil
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	for id, st := range l.states {
		if now.After(st.resetAt) {
			delete(l.states, id)
		}
	}
}

// size 当前跟踪的 identifier 数，测试用
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}
