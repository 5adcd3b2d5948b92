package http

import (
	"net/http"
	"strconv"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/auth"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createDemo(c *gin.Context) {
	var req promptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	demo, outputs, err := h.svc.CreateDemo(c.Request.Context(), auth.CallerID(c), req.Prompt)
	if err != nil {
		writeError(c, "create_demo", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "demo_id": demo.ID, "demo": demo, "outputs": outputs})
}

func (h *Handler) listDemos(c *gin.Context) {
	req := domain.ListDemosRequest{
		OwnerID: auth.CallerID(c),
		Cursor:  c.Query("cursor"),
	}
	if v := c.Query("include_archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "include_archived must be a boolean"})
			return
		}
		req.IncludeArchived = b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "limit must be a positive integer"})
			return
		}
		req.Limit = n
	}

	page, err := h.svc.ListDemos(c.Request.Context(), req)
	if err != nil {
		writeError(c, "list_demos", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "demos": page.Demos, "next_cursor": page.NextCursor})
}

func (h *Handler) getDemo(c *gin.Context) {
	view, err := h.svc.GetDemo(c.Request.Context(), auth.CallerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "get_demo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "demo": view})
}

func (h *Handler) updatePrompt(c *gin.Context) {
	var req promptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	demo, err := h.svc.UpdatePrompt(c.Request.Context(), auth.CallerID(c), c.Param("id"), req.Prompt)
	if err != nil {
		writeError(c, "update_prompt", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "demo": demo})
}

func (h *Handler) updateModels(c *gin.Context) {
	var req modelsReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Models == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	demo, err := h.svc.UpdateSelectedModels(c.Request.Context(), auth.CallerID(c), c.Param("id"), req.Models)
	if err != nil {
		writeError(c, "update_models", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "demo": demo})
}

func (h *Handler) regenerate(c *gin.Context) {
	var req modelsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	outputs, err := h.svc.RegenerateModels(c.Request.Context(), auth.CallerID(c), c.Param("id"), req.Models)
	if err != nil {
		writeError(c, "regenerate_models", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "outputs": outputs})
}

func (h *Handler) regenerateSingle(c *gin.Context) {
	output, err := h.svc.RegenerateSingle(c.Request.Context(), auth.CallerID(c), c.Param("id"), c.Param("model"))
	if err != nil {
		writeError(c, "regenerate_single", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "output": output})
}

func (h *Handler) navigate(c *gin.Context) {
	var req navigateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		writeError(c, "navigate_version", err)
		return
	}

	res, err := h.svc.NavigateVersion(c.Request.Context(), auth.CallerID(c), c.Param("id"), c.Param("model"), dir)
	if err != nil {
		writeError(c, "navigate_version", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "output": res})
}

func (h *Handler) archive(c *gin.Context) {
	demo, err := h.svc.Archive(c.Request.Context(), auth.CallerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "archive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "demo": demo})
}

func (h *Handler) unarchive(c *gin.Context) {
	demo, err := h.svc.Unarchive(c.Request.Context(), auth.CallerID(c), c.Param("id"))
	if err != nil {
		writeError(c, "unarchive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "demo": demo})
}

func (h *Handler) listModels(c *gin.Context) {
	models := h.registry.Models()
	out := make([]modelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, modelInfo{
			ID:             m.ID,
			Name:           m.Name,
			Provider:       m.Provider.DisplayName(),
			DefaultEnabled: m.DefaultEnabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "models": out})
}
