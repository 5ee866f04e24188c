package api

import (
	"net/http"
	"strconv"

	"rpsarena/models"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 50

func queryLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type stakeRequest struct {
	Stake int64 `json:"stake" binding:"required,gt=0,staketier"`
}

type choiceRequest struct {
	Choice string `json:"choice" binding:"required,rpschoice"`
}

type webhookRequest struct {
	Reference string               `json:"reference" binding:"required"`
	Status    models.PaymentStatus `json:"status" binding:"required,oneof=pending success failed"`
}

type repairRequest struct {
	DryRun bool `json:"dryRun"`
}

// Account

func (h *handler) getAccount(c *gin.Context) {
	userID, name := currentUser(c)
	account, err := h.svc.Accounts.GetOrCreateAccount(c.Request.Context(), userID, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *handler) getLedger(c *gin.Context) {
	userID, _ := currentUser(c)
	entries, err := h.svc.Accounts.GetLedger(c.Request.Context(), userID, queryLimit(c, defaultPageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handler) getStats(c *gin.Context) {
	userID, _ := currentUser(c)
	stats, err := h.svc.Stats.GetPlayerStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"winRate":   stats.WinRate(),
		"netProfit": stats.NetProfit(),
	})
}

func (h *handler) leaderboard(c *gin.Context) {
	leaders, err := h.svc.Stats.GetLeaderboard(c.Request.Context(), queryLimit(c, 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": leaders})
}

// Bets

func (h *handler) listBets(c *gin.Context) {
	bets, err := h.svc.Bets.ListOpenBets(c.Request.Context(), queryLimit(c, defaultPageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (h *handler) createBet(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, name := currentUser(c)
	bet, err := h.svc.Bets.CreateBet(c.Request.Context(), userID, name, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"betId": bet.ID, "bet": bet})
}

func (h *handler) getBet(c *gin.Context) {
	bet, err := h.svc.Bets.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

func (h *handler) joinBet(c *gin.Context) {
	userID, name := currentUser(c)
	match, err := h.svc.Bets.JoinBet(c.Request.Context(), c.Param("id"), userID, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gameId": match.ID})
}

func (h *handler) cancelBet(c *gin.Context) {
	userID, _ := currentUser(c)
	refund, err := h.svc.Bets.CancelBet(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refundAmount": refund})
}

// Matchmaking

func (h *handler) queueStatus(c *gin.Context) {
	userID, _ := currentUser(c)
	entry, err := h.svc.Matchmaking.QueueStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": entry != nil, "entry": entry})
}

func (h *handler) joinQueue(c *gin.Context) {
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, name := currentUser(c)
	result, err := h.svc.Matchmaking.JoinWaitingRoom(c.Request.Context(), userID, name, req.Stake)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) leaveQueue(c *gin.Context) {
	userID, _ := currentUser(c)
	refunded, err := h.svc.Matchmaking.LeaveWaitingRoom(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunded": refunded})
}

// Games

func (h *handler) getGame(c *gin.Context) {
	userID, _ := currentUser(c)
	match, err := h.svc.Matches.GetMatch(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

func (h *handler) submitChoice(c *gin.Context) {
	var req choiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	choice, err := models.ParseChoice(req.Choice)
	if err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := currentUser(c)
	result, err := h.svc.Matches.SubmitChoice(c.Request.Context(), c.Param("id"), userID, choice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) timeout(c *gin.Context) {
	userID, _ := currentUser(c)
	result, err := h.svc.Matches.HandleTimeout(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) cancelGame(c *gin.Context) {
	userID, _ := currentUser(c)
	cancelled, err := h.svc.Matches.CancelStaleGame(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (h *handler) cancelActiveGames(c *gin.Context) {
	userID, _ := currentUser(c)
	cancelled, err := h.svc.Matches.CancelActiveGamesForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// Payments

func (h *handler) recharge(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := currentUser(c)
	payment, err := h.svc.Payments.InitiateRecharge(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *handler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := currentUser(c)
	entry, err := h.svc.Payments.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handler) paymentWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.Payments.HandleWebhook(c.Request.Context(), req.Reference, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Admin

func (h *handler) repair(c *gin.Context) {
	var req repairRequest
	// An empty body means a real run
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if dryRun, err := strconv.ParseBool(c.Query("dryRun")); err == nil {
		req.DryRun = dryRun
	}

	report, err := h.svc.Repair.RepairStuckWagers(c.Request.Context(), req.DryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) sweep(c *gin.Context) {
	report, err := h.svc.Sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) auditAccount(c *gin.Context) {
	audit, err := h.svc.Accounts.AuditLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
