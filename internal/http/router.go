package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fintrait-chat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas del gateway.
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	streamH *StreamHandler,
	tokens *service.SessionTokenService,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.POST("/session/start", chatH.StartSession)

	// El stream websocket autentica por query param: los browsers no pueden
	// mandar headers en el handshake.
	r.GET("/ws", streamH.Handle)

	authed := r.Group("/", SessionAuthMiddleware(tokens), jsonContentTypeMiddleware())
	authed.POST("/chat", chatH.PostMessage)
	authed.POST("/persona", chatH.GeneratePersona)
	authed.GET("/transcript", chatH.GetTranscript)
	authed.GET("/summary", chatH.GetSummary)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
