package routes

import (
	"socialfeed/api/handlers"
	"socialfeed/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "feedd"

func Setup(router *gin.Engine, h *handlers.Handler) {
	router.Use(middleware.PrometheusMiddleware(serviceName))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/v1/")
	{
		public.POST("user/register", h.RegisterUser)
	}

	api := router.Group("/api/v1/")
	api.Use(middleware.HeaderAuth())
	{
		api.POST("posts/create", h.CreatePost)
		api.POST("posts/:post_id/delete", h.DeletePost)
		api.POST("posts/:post_id/hide", h.HidePost)
		api.GET("feed", h.GetFeed)

		api.POST("follows/add", h.Follow)
		api.POST("follows/delete", h.Unfollow)
		api.POST("topics/follow", h.FollowTopic)
		api.POST("blocks/add", h.Block)
		api.POST("account/delete", h.DeleteAccount)

		api.GET("admin/queue/stats", h.GetQueueStats)
		api.POST("admin/feed/:user_id/invalidate", h.InvalidateUserFeed)

		api.GET("ws/feed", h.WSFeedHandler)
	}
}
