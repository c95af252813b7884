package api

import (
	"database/sql"
	"fmt"
	"time"
	"tradechat/internal/app"
	"tradechat/internal/logger"
	"tradechat/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ApiHandler struct {
	// nil unless an order log is configured
	Db *sql.DB

	ChatHandler     *app.ChatHandler
	PositionService service.PositionService

	// empty disables auth, e.g. for local runs
	SigningSecret string
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(requestLogMiddleware())

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to tradechat"})
	})

	authed := router.Group("/", m.authMiddleware())
	authed.POST("/message", m.processMessage)
	authed.GET("/positions", m.positions)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	return m.InitializeRouterEngine().Run(fmt.Sprintf(":%d", port))
}

func requestLogMiddleware() gin.HandlerFunc {
	log := logger.New()
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.AddToContext(c.Request.Context(), log))
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsedMs", time.Since(start).Milliseconds(),
		)
	}
}

func returnErrorJson(err error, c *gin.Context) {
	logger.New().Error(err)
	c.AbortWithStatusJSON(500, gin.H{
		"error": err.Error(),
	})
}
