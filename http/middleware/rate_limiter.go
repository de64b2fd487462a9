package middleware

import (
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leeforge/imagekit/http/responder"
)

// RateLimitConfig 限流配置（令牌桶，按客户端区分）
type RateLimitConfig struct {
	Rate       float64             `mapstructure:"rate"` // 每秒请求数，<= 0 关闭限流
	Burst      int                 `mapstructure:"burst" default:"20"`
	KeyHeader  string              `mapstructure:"key-header" default:"X-API-Key"`
	IdleTTL    time.Duration       `mapstructure:"idle-ttl" default:"10m"`
	Strategies map[string]Strategy `mapstructure:"strategies"` // 按路径前缀配置
}

// Strategy 限流策略
type Strategy struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 限流器
type RateLimiter struct {
	config    RateLimitConfig
	fallback  Strategy
	prefixes  []string
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}

	prefixes := make([]string, 0, len(config.Strategies))
	for p := range config.Strategies {
		prefixes = append(prefixes, p)
	}
	// 最长前缀优先
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	return &RateLimiter{
		config:   config,
		fallback: Strategy{Rate: config.Rate, Burst: config.Burst},
		prefixes: prefixes,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Middleware 限流中间件
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, strategy := rl.getStrategy(r.URL.Path)
		if strategy.Rate <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		limiter := rl.limiter(pattern+"|"+rl.clientKey(r), strategy, now)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(strategy.Burst))
		reservation := limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
			retryAfter := 1
			if reservation.OK() {
				reservation.CancelAt(now)
				retryAfter = int(math.Ceil(delay.Seconds()))
			}
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			responder.TooManyRequests(w, r, "")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(now))))

		next.ServeHTTP(w, r)
	})
}

// getStrategy 获取路径对应的限流配置
func (rl *RateLimiter) getStrategy(path string) (string, Strategy) {
	for _, p := range rl.prefixes {
		if strings.HasPrefix(path, p) {
			s := rl.config.Strategies[p]
			if s.Burst <= 0 {
				s.Burst = rl.config.Burst
			}
			return p, s
		}
	}
	return "", rl.fallback
}

// clientKey 优先使用 API Key 头，否则使用客户端 IP
func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.config.KeyHeader != "" {
		if key := r.Header.Get(rl.config.KeyHeader); key != "" {
			return "key:" + key
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) limiter(key string, s Strategy, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.config.IdleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.config.IdleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.Rate), s.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Reset 清空全部客户端的限流状态
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.visitors = make(map[string]*visitor)
}

// Len 返回当前跟踪的客户端数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
