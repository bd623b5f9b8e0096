package middleware

import (
	"os"
	"strings"

	"github.com/beego/beego/v2/server/web/context"
)

// defaultOrigins 本地前端调试地址
var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

// allowedOrigins 额外来源通过 CORS_ALLOW_ORIGINS 配置，逗号分隔，* 放行全部
func allowedOrigins() []string {
	extra := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if extra == "" {
		return defaultOrigins
	}
	origins := append([]string{}, defaultOrigins...)
	for _, o := range strings.Split(extra, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func originAllowed(origin string) bool {
	for _, allowed := range allowedOrigins() {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// CORSMiddleware CORS中间件。SSE接口同样经过这里，预检请求直接204短路。
func CORSMiddleware(ctx *context.Context) {
	origin := ctx.Input.Header("Origin")
	if origin != "" && originAllowed(origin) {
		ctx.Output.Header("Access-Control-Allow-Origin", origin)
		ctx.Output.Header("Access-Control-Allow-Credentials", "true")
	}
	ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
	ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
	ctx.Output.Header("Access-Control-Max-Age", "3600")

	if ctx.Input.Method() == "OPTIONS" {
		ctx.Output.SetStatus(204)
		ctx.Output.Body([]byte(""))
	}
}
