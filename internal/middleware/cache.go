package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/todo-app/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// Cache is a per-user response cache backed by Redis.  Responses are keyed
// by user, method, route and query; any successful mutating request by a
// user drops that user's entries.
type Cache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *slog.Logger
}

func NewCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &Cache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *Cache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// userPrefix is the key namespace of one user.
func (rc *Cache) userPrefix(userID string) string {
	return rc.cfg.Prefix + ":user:" + userID + ":"
}

// key builds a stable cache key for an authenticated request.
func (rc *Cache) key(c echo.Context, userID string) string {
	r := c.Request()
	tail := strings.Join([]string{r.Method, c.Path(), r.URL.RawQuery}, "|")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s%x", rc.userPrefix(userID), sum[:])
}

// Invalidate removes every cached response of the user.
func (rc *Cache) Invalidate(ctx context.Context, userID string) error {
	if !rc.enabled() || userID == "" {
		return nil
	}
	iter := rc.rdb.Scan(ctx, 0, rc.userPrefix(userID)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.rdb.Del(ctx, keys...).Err()
}

// Middleware must run after Auth; anonymous requests are never cached.
func (rc *Cache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return next(c)
			}
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				err := next(c)
				if err == nil && c.Response().Status < http.StatusBadRequest {
					if ierr := rc.Invalidate(c.Request().Context(), uid); ierr != nil {
						rc.log.Warn("cache: invalidate failed", "user_id", uid, "err", ierr)
					}
				}
				return err
			}

			ctx := c.Request().Context()
			key := rc.key(c, uid)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					replayHeaders(c.Response().Header(), hdr)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			// Truncated bodies are not stored.
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
					rc.log.Warn("cache: store failed", "key", key, "err", err)
				}
			}
			return nil
		}
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// replayHeaders copies a stored response's headers onto the live one.
// Headers that describe this request (its id, rate limit state, cookies,
// length) are left as the current middleware chain set them; the rest
// replace rather than append.
func replayHeaders(dst, stored http.Header) {
	for k, vals := range stored {
		switch ck := http.CanonicalHeaderKey(k); {
		case ck == echo.HeaderContentLength, ck == echo.HeaderXRequestID, ck == echo.HeaderSetCookie,
			ck == "X-Cache", strings.HasPrefix(ck, "X-Ratelimit-"):
			continue
		default:
			dst[ck] = append([]string(nil), vals...)
		}
	}
}
