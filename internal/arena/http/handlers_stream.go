package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/demo-arena/arena-backend/internal/auth"
	"github.com/gin-gonic/gin"
)

// streamDemo streams the resolved demo using Server-Sent Events. Redis events trigger an
// immediate refresh; a one second poll covers missed or absent events.
func (h *Handler) streamDemo(c *gin.Context) {
	demoID := c.Param("id")
	callerID := auth.CallerID(c)
	ctx := c.Request.Context()

	view, err := h.svc.GetDemo(ctx, callerID, demoID)
	if err != nil {
		writeError(c, "stream_demo", err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	var events <-chan repository.DemoEvent
	if h.events != nil {
		ch, closeSub, err := h.events.Subscribe(ctx, demoID)
		if err != nil {
			writeLog(c, "stream_subscribe", err)
		} else {
			defer closeSub()
			events = ch
		}
	}

	writeEvent(c, flusher, "initial", gin.H{"demo": view})
	last := fingerprint(view)

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()
	poll := time.NewTicker(time.Second)
	defer poll.Stop()

	refresh := func() bool {
		next, err := h.svc.GetDemo(ctx, callerID, demoID)
		if err != nil {
			return ctx.Err() == nil
		}
		if fp := fingerprint(next); fp != last {
			last = fp
			writeEvent(c, flusher, "update", gin.H{"demo": next})
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		case _, open := <-events:
			if !open {
				events = nil
				continue
			}
			if !refresh() {
				return
			}
		case <-poll.C:
			if !refresh() {
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, flusher http.Flusher, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeLog(c, "stream_encode", err)
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data)
	flusher.Flush()
}

// fingerprint captures every field of a view a client renders
func fingerprint(v domain.DemoView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%t|%s", v.Demo.UpdatedAt.UnixNano(), v.Demo.Prompt, v.Demo.Archived, strings.Join(v.Demo.SelectedModels, ","))
	for _, e := range v.Outputs {
		fmt.Fprintf(&b, "|%s:%d/%d", e.ModelID, e.VersionIndex, e.VersionCount)
		if e.Output != nil {
			fmt.Fprintf(&b, ":%s:%s:%d", e.Output.ID, e.Output.Status, e.Output.UpdatedAt.UnixNano())
		}
	}
	return b.String()
}
