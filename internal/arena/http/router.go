package http

import "github.com/gin-gonic/gin"

// Register registers the demo and model routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/models", h.listModels)

	demos := rg.Group("/demos")
	demos.POST("", h.createDemo)
	demos.GET("", h.listDemos)
	demos.GET("/:id", h.getDemo)
	demos.GET("/:id/stream", h.streamDemo)
	demos.PATCH("/:id/prompt", h.updatePrompt)
	demos.PUT("/:id/models", h.updateModels)
	demos.POST("/:id/regenerate", h.regenerate)
	demos.POST("/:id/models/:model/regenerate", h.regenerateSingle)
	demos.POST("/:id/models/:model/navigate", h.navigate)
	demos.POST("/:id/archive", h.archive)
	demos.POST("/:id/unarchive", h.unarchive)
}
