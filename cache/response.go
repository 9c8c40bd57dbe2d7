package cache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"fintrack/logger"

	"github.com/gin-gonic/gin"
)

const keyPrefix = "fintrack"

// ownerKey 写操作涉及的记录所有者
const ownerKey = "cacheOwnerID"

// ResponseCache 按用户缓存 GET 响应。写操作成功后递增该用户的版本号，旧缓存自然失效
type ResponseCache struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

// NewResponseCache store 为 nil 时返回 nil，对应的中间件直接放行
func NewResponseCache(store Store, ttl time.Duration) *ResponseCache {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResponseCache{store: store, ttl: ttl, log: logger.New("cache"), now: time.Now}
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func versionKey(userID uint) string {
	return fmt.Sprintf("%s:ver:%d", keyPrefix, userID)
}

// responseKey 统计接口缺省取当月，键里带上当前年月，跨月后不会命中上个月的结果
func responseKey(userID uint, version int64, period string, r *http.Request) string {
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:resp:%d:%d:%s:%x", keyPrefix, userID, version, period, sum[:])
}

// MarkOwner 记录被修改记录的所有者，管理员改别人的数据时同样使其缓存失效
func MarkOwner(c *gin.Context, ownerID uint) {
	if ownerID > 0 {
		c.Set(ownerKey, ownerID)
	}
}

// affectedUsers 当前用户加上被修改记录的所有者
func affectedUsers(c *gin.Context) []uint {
	var ids []uint
	userID, ok := currentUserID(c)
	if ok {
		ids = append(ids, userID)
	}
	if v, exists := c.Get(ownerKey); exists {
		if owner, isUint := v.(uint); isUint && owner > 0 && owner != userID {
			ids = append(ids, owner)
		}
	}
	return ids
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}

// Middleware 缓存已认证用户的 GET 请求，只缓存 200 响应
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	if rc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if c.Request.Method != http.MethodGet || !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		version, err := rc.store.Int(ctx, versionKey(userID))
		if err != nil {
			rc.log.WarnContext(ctx, "read cache version failed", "error", err)
			c.Next()
			return
		}
		key := responseKey(userID, version, rc.now().Format("2006-01"), c.Request)

		if body, err := rc.store.Get(ctx, key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Header("X-Cache", "MISS")
		c.Next()

		if cw.Status() == http.StatusOK && len(c.Errors) == 0 && cw.buf.Len() > 0 {
			if err := rc.store.Set(context.WithoutCancel(ctx), key, cw.buf.Bytes(), rc.ttl); err != nil {
				rc.log.WarnContext(ctx, "write cache failed", "error", err)
			}
		}
	}
}

// Invalidate 写操作成功后使当前用户及记录所有者的缓存失效
func (rc *ResponseCache) Invalidate() gin.HandlerFunc {
	if rc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest || len(c.Errors) > 0 {
			return
		}
		for _, userID := range affectedUsers(c) {
			if err := rc.Bump(c.Request.Context(), userID); err != nil {
				rc.log.WarnContext(c.Request.Context(), "bump cache version failed", "error", err, "user_id", userID)
			}
		}
	}
}

// Bump 递增用户缓存版本
func (rc *ResponseCache) Bump(ctx context.Context, userID uint) error {
	if rc == nil {
		return nil
	}
	return rc.store.Incr(context.WithoutCancel(ctx), versionKey(userID))
}
