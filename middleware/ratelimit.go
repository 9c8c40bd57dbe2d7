package middleware

import (
	"sync"
	"time"

	"fintrack/apperror"

	"github.com/gin-gonic/gin"
)

// 认证接口的默认限流参数
const (
	AuthRateLimitAttempts = 5
	AuthRateLimitWindow   = 15 * time.Minute
)

// RateLimit 按 IP 的滑动窗口限流
// 每个实例单独计数，window 内最多 maxAttempts 次请求，超过返回 429
func RateLimit(maxAttempts int, window time.Duration, message string) gin.HandlerFunc {
	type entry struct {
		timestamps []time.Time
	}
	var (
		mu    sync.RWMutex
		store = make(map[string]*entry)
	)
	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			cutoff := time.Now().Add(-window)
			for ip, e := range store {
				newTs := e.timestamps[:0]
				for _, t := range e.timestamps {
					if t.After(cutoff) {
						newTs = append(newTs, t)
					}
				}
				if len(newTs) == 0 {
					delete(store, ip)
				} else {
					e.timestamps = newTs
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()
		mu.Lock()
		e, ok := store[ip]
		if !ok {
			e = &entry{}
			store[ip] = e
		}
		// 移除窗口外的记录
		cutoff := now.Add(-window)
		newTs := e.timestamps[:0]
		for _, t := range e.timestamps {
			if t.After(cutoff) {
				newTs = append(newTs, t)
			}
		}
		e.timestamps = newTs
		if len(e.timestamps) >= maxAttempts {
			mu.Unlock()
			abort(c, apperror.TooManyRequests(message))
			return
		}
		e.timestamps = append(e.timestamps, now)
		mu.Unlock()
		c.Next()
	}
}

// LoginRateLimit 登录、注册、找回密码等接口的限流
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return RateLimit(maxAttempts, window, "Too many attempts, please try again later")
}

// AuthRateLimit 使用默认参数的 LoginRateLimit
func AuthRateLimit() gin.HandlerFunc {
	return LoginRateLimit(AuthRateLimitAttempts, AuthRateLimitWindow)
}
