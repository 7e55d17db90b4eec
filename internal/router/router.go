package router

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"ruleboard/internal/hub"
)

// Router wires the HTTP surface: the websocket endpoint and a health check.
type Router struct {
	engine *gin.Engine
	hub    *hub.Hub
}

func New(h *hub.Hub) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(CORS())
	engine.Use(LogAPI())

	return &Router{engine: engine, hub: h}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")
	api.GET("/ws", r.handleWebSocket)
}

func (r *Router) handleWebSocket(c *gin.Context) {
	hub.ServeWS(r.hub, c.Writer, c.Request)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// LogAPI logs one line per HTTP request.
func LogAPI() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] | %s | %d | %s | %s | %s | %s\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.ClientIP,
			param.StatusCode,
			param.Method,
			param.Path,
			param.ErrorMessage,
			param.Latency,
		)
	})
}
