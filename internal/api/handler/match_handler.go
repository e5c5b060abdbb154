package handler

import (
	"context"
	"errors"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/matching"
	"resume-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// MatchScorer 匹配编排器的消费方接口
type MatchScorer interface {
	ScoreMatch(ctx context.Context, req matching.MatchRequest) (*types.MatchResult, error)
}

// CandidateSearcher 候选人检索的消费方接口
type CandidateSearcher interface {
	FindCandidates(ctx context.Context, jobDescription string, topK int) ([]types.RankedCandidate, error)
}

// MatchReader 匹配结果的只读查询接口
type MatchReader interface {
	GetMatch(ctx context.Context, matchID string) (*types.MatchResult, error)
	ListMatchesByResume(ctx context.Context, resumeID string) ([]*types.MatchResult, error)
}

// MatchHandler 负责处理匹配打分与候选人检索相关的请求
type MatchHandler struct {
	scorer   MatchScorer
	searcher CandidateSearcher
	reader   MatchReader
}

// NewMatchHandler 创建一个新的 MatchHandler 实例
func NewMatchHandler(scorer MatchScorer, searcher CandidateSearcher, reader MatchReader) *MatchHandler {
	return &MatchHandler{
		scorer:   scorer,
		searcher: searcher,
		reader:   reader,
	}
}

// SearchCandidatesRequest 候选人检索请求体
type SearchCandidatesRequest struct {
	JobDescription string `json:"job_description"`
	TopK           int    `json:"top_k"`
}

// HandleCreateMatch 处理简历-岗位匹配打分请求。
// POST /api/v1/matches
func (h *MatchHandler) HandleCreateMatch(ctx context.Context, c *app.RequestContext) {
	var req matching.MatchRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败: " + err.Error()})
		return
	}

	result, err := h.scorer.ScoreMatch(ctx, req)
	if err != nil {
		status := matching.HTTPStatus(err)
		if status >= consts.StatusInternalServerError {
			logger.Ctx(ctx).Error().Err(err).Str("resume_id", req.ResumeID).Msg("匹配打分失败")
		} else {
			logger.Ctx(ctx).Info().Err(err).Str("resume_id", req.ResumeID).Msg("匹配请求被拒绝")
		}
		c.JSON(status, map[string]string{"error": err.Error()})
		return
	}

	c.JSON(consts.StatusOK, result)
}

// HandleGetMatch 按匹配ID查询匹配结果。
// GET /api/v1/matches/:match_id
func (h *MatchHandler) HandleGetMatch(ctx context.Context, c *app.RequestContext) {
	matchID := c.Param("match_id")
	if matchID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "match_id 不能为空"})
		return
	}

	result, err := h.reader.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, matching.ErrNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "匹配结果不存在: " + matchID})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("match_id", matchID).Msg("查询匹配结果失败")
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询匹配结果失败"})
		return
	}

	c.JSON(consts.StatusOK, result)
}

// HandleListResumeMatches 列出一份简历的全部匹配结果，按相似度降序。
// GET /api/v1/resumes/:resume_id/matches
func (h *MatchHandler) HandleListResumeMatches(ctx context.Context, c *app.RequestContext) {
	resumeID := c.Param("resume_id")
	if resumeID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "resume_id 不能为空"})
		return
	}

	results, err := h.reader.ListMatchesByResume(ctx, resumeID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("查询简历匹配列表失败")
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询简历匹配列表失败"})
		return
	}
	if results == nil {
		results = []*types.MatchResult{}
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"resume_id": resumeID,
		"total":     len(results),
		"data":      results,
	})
}

// HandleSearchCandidates 按岗位描述检索最相似的候选人。
// POST /api/v1/jobs/search-candidates
func (h *MatchHandler) HandleSearchCandidates(ctx context.Context, c *app.RequestContext) {
	var req SearchCandidatesRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败: " + err.Error()})
		return
	}

	candidates, err := h.searcher.FindCandidates(ctx, req.JobDescription, req.TopK)
	if err != nil {
		status := matching.HTTPStatus(err)
		if status >= consts.StatusInternalServerError {
			logger.Ctx(ctx).Error().Err(err).Msg("候选人检索失败")
		}
		c.JSON(status, map[string]string{"error": err.Error()})
		return
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"total": len(candidates),
		"data":  candidates,
	})
}
