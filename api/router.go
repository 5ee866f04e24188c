package api

import (
	"net/http"

	"rpsarena/config"
	"rpsarena/service"

	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer calls into
type Services struct {
	Accounts    service.AccountService
	Bets        service.BetService
	Matchmaking service.MatchmakingService
	Matches     service.MatchService
	Payments    service.PaymentService
	Stats       service.StatsService
	Repair      service.RepairService
	Sweeper     service.Sweeper
}

type handler struct {
	cfg *config.Config
	svc Services
}

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(cfg *config.Config, svc Services) (*gin.Engine, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := registerValidators(cfg); err != nil {
		return nil, err
	}

	h := &handler{cfg: cfg, svc: svc}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		// Gateway callbacks carry no player identity
		v1.POST("/payments/webhook", requireSecret(headerWebhookSecret, cfg.PaymentWebhookSecret), h.paymentWebhook)

		admin := v1.Group("/admin", requireSecret(headerAdminToken, cfg.AdminToken))
		{
			admin.POST("/repair", h.repair)
			admin.POST("/sweep", h.sweep)
			admin.GET("/accounts/:id/audit", h.auditAccount)
		}

		v1.GET("/leaderboard", h.leaderboard)

		player := v1.Group("", requireUser())
		{
			player.GET("/account", h.getAccount)
			player.GET("/account/ledger", h.getLedger)
			player.GET("/account/stats", h.getStats)

			player.GET("/bets", h.listBets)
			player.POST("/bets", h.createBet)
			player.GET("/bets/:id", h.getBet)
			player.POST("/bets/:id/join", h.joinBet)
			player.POST("/bets/:id/cancel", h.cancelBet)

			player.GET("/matchmaking", h.queueStatus)
			player.POST("/matchmaking", h.joinQueue)
			player.DELETE("/matchmaking", h.leaveQueue)

			player.POST("/games/cancel-active", h.cancelActiveGames)
			player.GET("/games/:id", h.getGame)
			player.POST("/games/:id/choice", h.submitChoice)
			player.POST("/games/:id/timeout", h.timeout)
			player.POST("/games/:id/cancel", h.cancelGame)

			player.POST("/payments/recharge", h.recharge)
			player.POST("/payments/withdraw", h.withdraw)
		}
	}

	return router, nil
}
