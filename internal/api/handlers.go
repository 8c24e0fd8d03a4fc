package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/models"
)

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrInvalidID
	}
	return id, nil
}

// bindBacktest decodes and validates a backtest body, including its attachments.
func bindBacktest(c *gin.Context) (*models.BacktestRecord, error) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, bindError(err)
	}
	rec := req.Record()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := codec.Validate("set_file", rec.SetFile); err != nil {
		return nil, err
	}
	if err := codec.Validate("capital_curve", rec.CapitalCurve); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Server) listBacktests(c *gin.Context) {
	records, err := s.repos.Backtest.List(c.Request.Context())
	if err != nil {
		s.fail(c, "list_backtests", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) createBacktest(c *gin.Context) {
	rec, err := bindBacktest(c)
	if err != nil {
		s.fail(c, "create_backtest", err)
		return
	}

	id, err := s.repos.Backtest.Create(c.Request.Context(), rec)
	if err != nil {
		s.fail(c, "create_backtest", err)
		return
	}

	s.audit.LogBacktestCreated(id, rec.Symbol, rec.StrategyName, c.ClientIP())
	s.publish(events.CollectionBacktest, events.ActionCreated, id)
	c.JSON(http.StatusCreated, MessageResponse{Message: "backtest saved", ID: id})
}

func (s *Server) updateBacktest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, "update_backtest", err)
		return
	}
	rec, err := bindBacktest(c)
	if err != nil {
		s.fail(c, "update_backtest", err)
		return
	}

	n, err := s.repos.Backtest.Update(c.Request.Context(), id, rec)
	if err != nil {
		s.fail(c, "update_backtest", err)
		return
	}
	if n == 0 {
		s.fail(c, "update_backtest", models.ErrNotFound)
		return
	}

	s.audit.LogBacktestUpdated(id, c.ClientIP())
	s.publish(events.CollectionBacktest, events.ActionUpdated, id)
	c.JSON(http.StatusOK, MessageResponse{Message: "backtest updated"})
}

func (s *Server) deleteBacktest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, "delete_backtest", err)
		return
	}

	n, err := s.repos.Backtest.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "delete_backtest", err)
		return
	}
	if n == 0 {
		s.fail(c, "delete_backtest", models.ErrNotFound)
		return
	}

	s.audit.LogBacktestDeleted(id, c.ClientIP())
	s.publish(events.CollectionBacktest, events.ActionDeleted, id)
	c.JSON(http.StatusOK, MessageResponse{Message: "backtest deleted"})
}

func (s *Server) listStrategies(c *gin.Context) {
	bundles, err := s.repos.StrategyBundle.List(c.Request.Context())
	if err != nil {
		s.fail(c, "list_strategies", err)
		return
	}
	c.JSON(http.StatusOK, bundles)
}

func (s *Server) uploadStrategy(c *gin.Context) {
	var req StrategyUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "upload_strategy", bindError(err))
		return
	}
	bundle := req.Bundle()
	if err := bundle.Validate(); err != nil {
		s.fail(c, "upload_strategy", err)
		return
	}

	ex, err := codec.DecodeField("strategy_ex_file", bundle.StrategyExFile)
	if err != nil {
		s.fail(c, "upload_strategy", err)
		return
	}
	mq, err := codec.DecodeField("strategy_mq_file", bundle.StrategyMqFile)
	if err != nil {
		s.fail(c, "upload_strategy", err)
		return
	}

	id, err := s.repos.StrategyBundle.Create(c.Request.Context(), bundle)
	if err != nil {
		s.fail(c, "upload_strategy", err)
		return
	}

	s.audit.LogBundleUploaded(id, bundle.StrategyName, len(ex), len(mq), c.ClientIP())
	s.publish(events.CollectionStrategies, events.ActionCreated, id)
	c.JSON(http.StatusCreated, MessageResponse{Message: "strategy files uploaded", ID: id})
}

func (s *Server) deleteStrategy(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		s.fail(c, "delete_strategy", err)
		return
	}

	n, err := s.repos.StrategyBundle.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "delete_strategy", err)
		return
	}
	if n == 0 {
		s.fail(c, "delete_strategy", models.ErrNotFound)
		return
	}

	s.audit.LogBundleDeleted(id, c.ClientIP())
	s.publish(events.CollectionStrategies, events.ActionDeleted, id)
	c.JSON(http.StatusOK, MessageResponse{Message: "strategy files deleted"})
}
