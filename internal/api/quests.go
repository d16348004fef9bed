package api

import (
	"errors"
	"net/http"
	"time"

	"gods_arena/internal/middleware"
	"gods_arena/internal/model"
	"gods_arena/internal/service"
	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type questRoutes struct {
	qs service.QuestServiceI
	a  *auth.TelegramAuth
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, a *auth.TelegramAuth, admin *middleware.Authorization) {
	r := &questRoutes{qs: qs, a: a}
	h := handler.Group("/quests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.GetQuestBoard)
		h.POST("/claim/:user_quest_id", r.ClaimReward)

		adminGroup := h.Group("")
		adminGroup.Use(admin.AdminOnly())
		{
			adminGroup.POST("", r.CreateQuest)
			adminGroup.DELETE("/:quest_id", r.DeleteQuest)
		}
	}
}

type QuestResponse struct {
	QuestID        string `json:"quest_id"`
	QuestType      string `json:"quest_type"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ObjectiveValue int    `json:"objective_value"`
	RewardFavor    int    `json:"reward_favor"`
	RewardEssence  int    `json:"reward_essence"`
}

type UserQuestResponse struct {
	ID          string     `json:"id"`
	QuestID     string     `json:"quest_id"`
	Progress    int        `json:"progress"`
	IsCompleted bool       `json:"is_completed"`
	IsClaimed   bool       `json:"is_claimed"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

type QuestBoardResponse struct {
	Daily     []QuestResponse     `json:"daily"`
	Weekly    []QuestResponse     `json:"weekly"`
	Permanent []QuestResponse     `json:"permanent"`
	Progress  []UserQuestResponse `json:"progress"`
}

type ClaimRewardResponse struct {
	Success     bool         `json:"success"`
	Rewards     RewardsBody  `json:"rewards"`
	NewBalances BalancesBody `json:"newBalances"`
}

type RewardsBody struct {
	Favor   int `json:"favor"`
	Essence int `json:"essence"`
}

type BalancesBody struct {
	Favor   int `json:"favor"`
	Essence int `json:"essence"`
}

func toQuestResponses(quests []*model.Quest) []QuestResponse {
	out := make([]QuestResponse, len(quests))
	for i, q := range quests {
		out[i] = QuestResponse{
			QuestID:        q.QuestID.String(),
			QuestType:      string(q.QuestType),
			Title:          q.Title,
			Description:    q.Description,
			ObjectiveValue: q.ObjectiveValue,
			RewardFavor:    q.RewardFavor,
			RewardEssence:  q.RewardEssence,
		}
	}
	return out
}

func (r *questRoutes) GetQuestBoard(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	board, err := r.qs.GetBoard(c.Request.Context(), tgUser.ID)
	if err != nil {
		log.Error("failed to get quest board", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quests"})
		return
	}

	progress := make([]UserQuestResponse, len(board.Progress))
	for i, uq := range board.Progress {
		progress[i] = UserQuestResponse{
			ID:          uq.ID.String(),
			QuestID:     uq.QuestID.String(),
			Progress:    uq.Progress,
			IsCompleted: uq.IsCompleted,
			IsClaimed:   uq.IsClaimed,
			ClaimedAt:   uq.ClaimedAt,
		}
	}

	c.JSON(http.StatusOK, QuestBoardResponse{
		Daily:     toQuestResponses(board.Daily),
		Weekly:    toQuestResponses(board.Weekly),
		Permanent: toQuestResponses(board.Permanent),
		Progress:  progress,
	})
}

func (r *questRoutes) ClaimReward(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	userQuestID, err := uuid.Parse(c.Param("user_quest_id"))
	if err != nil {
		log.Error("failed to parse user_quest_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_quest_id"})
		return
	}

	result, err := r.qs.ClaimReward(c.Request.Context(), tgUser.ID, userQuestID)
	if err != nil {
		log.Error("failed to claim quest reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrUserQuestNotFound), errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrQuestNotYours):
			c.JSON(http.StatusForbidden, gin.H{"error": "quest does not belong to you"})
		case errors.Is(err, service.ErrQuestNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quest not completed"})
		case errors.Is(err, service.ErrQuestAlreadyClaimed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quest reward already claimed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim quest reward"})
		}
		return
	}

	c.JSON(http.StatusOK, ClaimRewardResponse{
		Success: true,
		Rewards: RewardsBody{
			Favor:   result.RewardFavor,
			Essence: result.RewardEssence,
		},
		NewBalances: BalancesBody{
			Favor:   result.BalanceFavor,
			Essence: result.BalanceEssence,
		},
	})
}

type CreateQuestRequest struct {
	QuestType      string `json:"quest_type" binding:"required,oneof=daily weekly permanent"`
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	ObjectiveValue int    `json:"objective_value" binding:"required,gt=0"`
	RewardFavor    int    `json:"reward_favor" binding:"gte=0"`
	RewardEssence  int    `json:"reward_essence" binding:"gte=0"`
	IsActive       bool   `json:"is_active"`
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	log := logger.Logger()

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("invalid create quest request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questID, err := r.qs.CreateQuest(c.Request.Context(), &model.Quest{
		QuestType:      model.QuestType(req.QuestType),
		Title:          req.Title,
		Description:    req.Description,
		ObjectiveValue: req.ObjectiveValue,
		RewardFavor:    req.RewardFavor,
		RewardEssence:  req.RewardEssence,
		IsActive:       req.IsActive,
	})
	if err != nil {
		log.Error("failed to create quest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create quest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"quest_id": questID.String()})
}

func (r *questRoutes) DeleteQuest(c *gin.Context) {
	log := logger.Logger()

	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		log.Error("failed to parse quest_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return
	}

	err = r.qs.DeleteQuest(c.Request.Context(), questID)
	if err != nil {
		log.Error("failed to delete quest", zap.Error(err))
		if errors.Is(err, service.ErrQuestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete quest"})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
