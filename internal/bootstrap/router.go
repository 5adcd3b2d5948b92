package bootstrap

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/demo-arena/arena-backend/internal/api/http"
	"github.com/demo-arena/arena-backend/internal/api/http/middleware"
	arenahttp "github.com/demo-arena/arena-backend/internal/arena/http"
	"github.com/demo-arena/arena-backend/internal/auth"
	authmw "github.com/demo-arena/arena-backend/internal/auth/middleware"
)

const serviceName = "arena-backend"

// BuildRouter assembles the gin engine: health, metrics and the /api/v1 arena routes
func BuildRouter(ctx context.Context, app *App) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var dbPing, redisPing httpapi.Pinger
	if app.DB != nil && app.DB.Pool != nil {
		dbPing = app.DB.Pool
	}
	if app.Redis != nil {
		redisPing = httpapi.PingFunc(func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() })
	}
	httpapi.NewHealthHandler(serviceName, app.Config.App.Version, dbPing, redisPing).RegisterRoutes(r)
	httpapi.NewMetricsHandler(map[string]httpapi.MetricsSource{
		"executor": httpapi.MetricsSourceFunc(func() any { return app.Executor.Metrics().Snapshot() }),
	}).RegisterRoutes(r)

	api := r.Group("/api/v1")
	if app.Config.Firebase.CredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, &app.Config.Firebase)
		if err != nil {
			return nil, err
		}
		api.Use(authmw.FirebaseAuthMiddleware(client))
	} else {
		if app.Config.App.IsProduction() {
			return nil, errors.New("FIREBASE_CREDENTIALS_PATH is required in production")
		}
		log.Println("[warn] component=bootstrap FIREBASE_CREDENTIALS_PATH not set, trusting X-User-Id headers")
		api.Use(auth.WithUser())
	}

	var events arenahttp.Subscriber
	if app.Events != nil {
		events = app.Events
	}
	arenahttp.New(app.Service, app.Registry, events).Register(api)

	return r, nil
}
