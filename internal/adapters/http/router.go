package http

import (
	"context"
	"net/http"

	"github.com/dkeye/VoiceRelay/internal/adapters/signal"
	"github.com/dkeye/VoiceRelay/internal/app/orch"
	"github.com/dkeye/VoiceRelay/internal/config"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	clientTokenCookie = "ct"
	clientTokenKey    = "client_token"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware pins a browser to a stable token, kept both in
// the "ct" cookie and in the session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			if v, ok := session.Get(clientTokenKey).(string); ok {
				token = v
			}
		}
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		if session.Get(clientTokenKey) != token {
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	o *orch.Orchestrator,
	ctrl *signal.SignalWSController,
	reg *prometheus.Registry,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoiceRelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if reg != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/hub", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString(clientTokenKey)).Msg("ws hub endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.GetDebugInfo())
	})

	api.GET("/channels", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Channels())
	})

	api.GET("/channels/:id", func(c *gin.Context) {
		id := domain.ChannelID(c.Param("id"))
		info, ok := o.ChannelStatus(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusOK, channelStatus{
			Channel:        info.ID,
			HasBroadcaster: info.HasBroadcaster(),
			Members:        info.MemberCount,
		})
	})

	return r
}

type channelStatus struct {
	Channel        domain.ChannelID `json:"channel"`
	HasBroadcaster bool             `json:"hasBroadcaster"`
	Members        int              `json:"members"`
}
