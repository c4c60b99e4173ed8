package server

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy 来源白名单，用于 CORS 响应头与 WebSocket 握手校验
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

// NewOriginPolicy 由已规范化的来源列表创建策略
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o == "*" {
			p.allowAll = true
			continue
		}
		p.allowed[o] = struct{}{}
	}
	return p
}

// Allows 来源是否在白名单内
func (p *OriginPolicy) Allows(origin string) bool {
	if p.allowAll {
		return true
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, exists := p.allowed[n]
	return exists
}

// CheckWebSocketOrigin 供 websocket.Upgrader 使用：
// 无 Origin（非浏览器客户端）与同源请求直接放行，其余按白名单判断
func (p *OriginPolicy) CheckWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return p.Allows(origin)
}

// CORS 为白名单来源写入跨域响应头，并直接应答预检请求
func (p *OriginPolicy) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && p.Allows(origin) {
			h := w.Header()
			if p.allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			out = append(out, o)
			continue
		}
		if n, ok := normalizeOrigin(o); ok {
			out = append(out, n)
		}
	}
	return out
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
