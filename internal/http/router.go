package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-nft-client/internal/metrics"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if origins := normalizeOrigins(cfg.AllowedOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}))
	}

	r.GET("/assets", h.CollectionAssets)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/network", h.Network)

		api.POST("/session/connect", h.Connect)
		api.GET("/session", h.Session)
		api.POST("/wallet/select", h.SelectAccount)
		api.POST("/wallet/disconnect", h.Disconnect)

		api.GET("/nfts", h.NFTs)
		api.POST("/nfts/refresh", h.RefreshNFTs)
		api.GET("/nfts/events", h.StreamNFTs)
		api.GET("/nfts/ws", h.StreamNFTsWS(newUpgrader(cfg.AllowedOrigins)))
		api.POST("/nfts/transfer", h.Transfer)
		api.POST("/nfts/mint", h.Mint)
		api.GET("/transfers/:id", h.TransferStatus)

		api.POST("/native/send", h.SendNative)

		api.GET("/balances", h.Balance)
		api.POST("/tokens/mint", h.MintTokens)

		api.GET("/registry/me", h.RegistryMe)
		api.POST("/registry/register", h.Register)
	}

	return r
}
