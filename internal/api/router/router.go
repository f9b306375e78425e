package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/webstoer2020/Subscription-bot/internal/api/handlers/subscriber"
	"github.com/webstoer2020/Subscription-bot/internal/middlewares"
)

func New(handler *subscriber.Handler, adminToken string) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	api.Use(middlewares.AdminAuth(adminToken))
	{
		api.POST("/subscribers", handler.Grant)
		api.GET("/subscribers", handler.List)
		api.GET("/subscribers/:id", handler.Get)
		api.GET("/subscribers/:id/status", handler.GetStatus)
		api.POST("/subscribers/:id/extend", handler.Extend)
		api.DELETE("/subscribers/:id", handler.Remove)
		api.POST("/check", handler.ForceCheck)
		api.POST("/notify", handler.Notify)
	}

	return e
}
