package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/demo-arena/arena-backend/internal/api/http/middleware"
	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to a status and the {ok:false} body
func writeError(c *gin.Context, operation string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrDemoNotFound), errors.Is(err, domain.ErrOutputNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNotAuthorized):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidPrompt),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrNoModels),
		errors.Is(err, repository.ErrInvalidCursor):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		log.Printf("[error] request_id=%s operation=%s error=%v", middleware.GetRequestID(c.Request.Context()), operation, err)
	}

	c.JSON(status, gin.H{"ok": false, "error": msg})
}

func writeLog(c *gin.Context, operation string, err error) {
	log.Printf("[warn] request_id=%s operation=%s error=%v", middleware.GetRequestID(c.Request.Context()), operation, err)
}
