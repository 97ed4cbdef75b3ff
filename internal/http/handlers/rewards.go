package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"telegram_rewards/internal/service"

	"github.com/gin-gonic/gin"
)

const historyLimit = 50

// Register POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Rewards.Register(c.Request.Context(), req.Username, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameRequired):
			respondError(c, http.StatusBadRequest, "Username is required")
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusConflict, "Username already taken")
		default:
			respondStoreError(c, err, "Error registering user")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    newUserResponse(user),
	})
}

// ClaimReward POST /api/claim-reward
func (h *Handler) ClaimReward(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.Rewards.ClaimReward(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.As(err, &cooldown):
			respondError(c, http.StatusBadRequest, cooldown.Error())
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "Invalid amount")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		default:
			respondStoreError(c, err, "Error claiming reward")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reward claimed successfully",
		"balance": number(balance),
	})
}

// Withdraw POST /api/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	w, err := h.Rewards.Withdraw(c.Request.Context(), req.UserID, req.WithdrawalAmount)
	if err != nil {
		var minimum *service.MinimumError
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.As(err, &minimum):
			respondError(c, http.StatusBadRequest, minimum.Error())
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "Invalid amount")
		case errors.Is(err, service.ErrInsufficientFunds):
			respondError(c, http.StatusBadRequest, "Insufficient balance")
		default:
			respondStoreError(c, err, "Error processing withdrawal")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Withdrawal of $" + w.Amount.String() + " processed successfully",
		"withdrawalId": w.ID,
	})
}

// Balance GET /api/balance/:userId
func (h *Handler) Balance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	balance, err := h.Rewards.GetBalance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondStoreError(c, err, "Error fetching balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": number(balance)})
}

// Withdrawals GET /api/withdrawals/:userId
func (h *Handler) Withdrawals(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	list, err := h.Rewards.Withdrawals(c.Request.Context(), userID, historyLimit)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondStoreError(c, err, "Error fetching withdrawals")
		return
	}

	out := make([]withdrawalResponse, 0, len(list))
	for _, w := range list {
		out = append(out, withdrawalResponse{ID: w.ID, Amount: number(w.Amount), Status: w.Status, CreatedAt: w.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": out})
}

// TopReferrers GET /api/referrals/top?limit=N
func (h *Handler) TopReferrers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	top, err := h.Rewards.TopReferrers(c.Request.Context(), limit)
	if err != nil {
		respondStoreError(c, err, "Error fetching referrals")
		return
	}
	out := make([]referrerResponse, 0, len(top))
	for _, r := range top {
		out = append(out, referrerResponse{UserID: r.UserID, Username: r.Username, ReferralEarnings: number(r.ReferralEarnings)})
	}
	c.JSON(http.StatusOK, gin.H{"top": out})
}

// id в пути не число - такого пользователя точно нет
func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusNotFound, "User not found")
		return 0, false
	}
	return id, true
}
