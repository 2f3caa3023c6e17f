package middleware

import (
	"strconv"
	"strings"

	"github.com/ThalesMilho/projeto-web/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// CORSFilter 跨域响应头。只给白名单里的 Origin 放行，
// 命中 "*" 时也回显具体 Origin，配合 Allow-Credentials 使用
func CORSFilter(ctx *beegocontext.Context) {
	cfg := config.Get()
	if cfg == nil || !cfg.CORS.Enabled {
		return
	}

	origin := ctx.Request.Header.Get("Origin")
	if origin == "" || !originAllowed(origin, cfg.CORS.AllowedOrigins) {
		return
	}

	ctx.Output.Header("Access-Control-Allow-Origin", origin)
	ctx.Output.Header("Access-Control-Allow-Methods", strings.Join(cfg.CORS.AllowedMethods, ", "))
	ctx.Output.Header("Access-Control-Allow-Headers", strings.Join(cfg.CORS.AllowedHeaders, ", "))
	ctx.Output.Header("Access-Control-Expose-Headers", strings.Join(cfg.CORS.ExposedHeaders, ", "))
	ctx.Output.Header("Access-Control-Max-Age", strconv.Itoa(cfg.CORS.MaxAge))
	if cfg.CORS.AllowCredentials {
		ctx.Output.Header("Access-Control-Allow-Credentials", "true")
	}

	// 预检请求直接 204 短路
	if ctx.Request.Method == "OPTIONS" {
		ctx.Output.SetStatus(204)
		ctx.ResponseWriter.WriteHeader(204)
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
