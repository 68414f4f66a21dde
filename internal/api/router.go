package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"mechinsight-backend/config"
	"mechinsight-backend/internal/auth"
	"mechinsight-backend/internal/mw"
	"mechinsight-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, codec *auth.TokenCodec, webpushOptions *webpush.Options, serverCfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, codec, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(serverCfg.RateLimitPerSec), serverCfg.RateLimitBurst)
	r.Use(rateLimiter)

	// GET / keeps the original liveness greeting.
	r.GET("/", handler.Root)

	r.POST("/signup", handler.Signup)
	r.POST("/login", handler.Login)

	authed := r.Group("/", mw.TokenAuth(codec))
	{
		authed.POST("/machine_details", handler.MachineDetails)

		// Every request re-queries the store unless the response cache is
		// explicitly enabled in config.
		if serverCfg.CacheTTLSeconds > 0 {
			ttl := time.Duration(serverCfg.CacheTTLSeconds) * time.Second
			cacheStore := cache.New(ttl, 2*ttl)
			authed.GET("/machine_details/:machineId", mw.Cache(cacheStore, ttl), handler.MachineHistory)
		} else {
			authed.GET("/machine_details/:machineId", handler.MachineHistory)
		}

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)
		authed.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
