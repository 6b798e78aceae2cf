package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"energy-trading-bot/internal/allocation"
	"energy-trading-bot/internal/bot"
	"energy-trading-bot/internal/engine"
	"energy-trading-bot/internal/growth"
	"energy-trading-bot/internal/risk"
)

func (s *Server) handleHealth(c *gin.Context) {
	cacheStatus := "disabled"
	if s.cache != nil {
		if s.cache.IsHealthy() {
			cacheStatus = "healthy"
		} else {
			cacheStatus = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"cache":      cacheStatus,
		"wsClients":  s.hub.GetClientCount(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"serverTime": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGetSignals(c *gin.Context) {
	successResponse(c, s.engine.Signals())
}

func (s *Server) handleGetPortfolio(c *gin.Context) {
	successResponse(c, s.engine.Portfolio())
}

func (s *Server) handleGetRisk(c *gin.Context) {
	ctx := c.Request.Context()

	if s.cache != nil {
		var cached risk.Metrics
		if err := s.cache.GetRisk(ctx, s.userID, &cached); err == nil {
			successResponse(c, cached)
			return
		}
	}

	metrics := s.engine.Risk(ctx)
	if s.cache != nil {
		s.cache.SetRisk(ctx, s.userID, metrics)
	}
	successResponse(c, metrics)
}

func (s *Server) handleGetAllocation(c *gin.Context) {
	current, err := s.engine.Allocation(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("allocation lookup failed")
		errorResponse(c, http.StatusServiceUnavailable, "allocation data unavailable")
		return
	}
	successResponse(c, current)
}

type updateAllocationRequest struct {
	Allocations map[string]float64 `json:"allocations" binding:"required"`
}

func (s *Server) handleUpdateAllocation(c *gin.Context) {
	ctx := c.Request.Context()

	var req updateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "allocations map is required")
		return
	}

	if err := s.engine.SetAllocation(ctx, req.Allocations); err != nil {
		if errors.Is(err, engine.ErrInvalidAllocation) {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("allocation update failed")
		errorResponse(c, http.StatusServiceUnavailable, "allocation update failed")
		return
	}

	// staked amounts feed risk, recommendations and projections
	if s.cache != nil {
		s.cache.Invalidate(ctx, s.userID)
	}

	current, err := s.engine.Allocation(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("allocation readback failed")
		errorResponse(c, http.StatusServiceUnavailable, "allocation data unavailable")
		return
	}
	successResponse(c, current)
}

func (s *Server) handleGetAllocationRecommendation(c *gin.Context) {
	ctx := c.Request.Context()

	style := allocation.Style(c.DefaultQuery("style", string(allocation.StyleBalanced)))
	switch style {
	case allocation.StyleConservative, allocation.StyleBalanced, allocation.StyleAggressive:
	default:
		errorResponse(c, http.StatusBadRequest, "style must be CONSERVATIVE, BALANCED or AGGRESSIVE")
		return
	}

	if s.cache != nil {
		var cached allocation.Result
		if err := s.cache.GetAllocation(ctx, s.userID, string(style), &cached); err == nil {
			successResponse(c, cached)
			return
		}
	}

	result, err := s.engine.AllocationRecommendation(ctx, style)
	if err != nil {
		s.logger.Error().Err(err).Msg("allocation recommendation failed")
		errorResponse(c, http.StatusServiceUnavailable, "allocation data unavailable")
		return
	}
	if s.cache != nil {
		s.cache.SetAllocation(ctx, s.userID, string(style), result)
	}
	successResponse(c, result)
}

func (s *Server) handleGetGrowthProjection(c *gin.Context) {
	ctx := c.Request.Context()

	months, err := strconv.Atoi(c.DefaultQuery("months", "12"))
	if err != nil || months < 0 || months > 120 {
		errorResponse(c, http.StatusBadRequest, "months must be an integer between 0 and 120")
		return
	}

	if s.cache != nil {
		var cached []growth.Point
		if err := s.cache.GetGrowth(ctx, s.userID, months, &cached); err == nil {
			successResponse(c, cached)
			return
		}
	}

	points, err := s.engine.GrowthProjection(ctx, months)
	if err != nil {
		s.logger.Error().Err(err).Msg("growth projection failed")
		errorResponse(c, http.StatusServiceUnavailable, "growth data unavailable")
		return
	}
	if s.cache != nil {
		s.cache.SetGrowth(ctx, s.userID, months, points)
	}
	successResponse(c, points)
}

func (s *Server) handleGetTrades(c *gin.Context) {
	successResponse(c, s.engine.Trades())
}

func (s *Server) handleGetPools(c *gin.Context) {
	pools, err := s.engine.Pools(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("pool listing failed")
		errorResponse(c, http.StatusServiceUnavailable, "pool data unavailable")
		return
	}
	successResponse(c, pools)
}

func (s *Server) handleGetBotStatus(c *gin.Context) {
	successResponse(c, s.engine.BotStatus())
}

type activateBotRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) handleActivateBot(c *gin.Context) {
	var req activateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "mode is required")
		return
	}

	if err := s.engine.ActivateBot(bot.Mode(req.Mode)); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	successResponse(c, s.engine.BotStatus())
}
