package handler

import (
	"context"
	"encoding/json"
	"testing"

	"resume-match-go/internal/matching"
	"resume-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockScorer 匹配打分的测试桩
type mockScorer struct {
	Result  *types.MatchResult
	Err     error
	LastReq matching.MatchRequest
}

func (m *mockScorer) ScoreMatch(ctx context.Context, req matching.MatchRequest) (*types.MatchResult, error) {
	m.LastReq = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// mockSearcher 候选人检索的测试桩
type mockSearcher struct {
	Candidates []types.RankedCandidate
	Err        error
	LastTopK   int
}

func (m *mockSearcher) FindCandidates(ctx context.Context, jobDescription string, topK int) ([]types.RankedCandidate, error) {
	m.LastTopK = topK
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates, nil
}

// mockReader 匹配结果查询的测试桩
type mockReader struct {
	Match   *types.MatchResult
	Matches []*types.MatchResult
	Err     error
}

func (m *mockReader) GetMatch(ctx context.Context, matchID string) (*types.MatchResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Match, nil
}

func (m *mockReader) ListMatchesByResume(ctx context.Context, resumeID string) ([]*types.MatchResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Matches, nil
}

func newJSONContext(body string) *app.RequestContext {
	c := app.NewContext(16)
	c.Request.SetBodyString(body)
	c.Request.Header.SetContentTypeBytes([]byte("application/json"))
	return c
}

func TestHandleCreateMatch(t *testing.T) {
	scorer := &mockScorer{
		Result: &types.MatchResult{
			MatchID:         "match-1",
			ResumeID:        "resume-1",
			JobID:           "job-1",
			SimilarityScore: 87.5,
			SkillGaps: types.SkillGap{
				Matched: []string{"Go"},
				Partial: []string{"Kubernetes"},
				Missing: []string{"Rust"},
			},
			MatchedSkills: []string{"Go"},
		},
	}
	h := NewMatchHandler(scorer, &mockSearcher{}, &mockReader{})

	c := newJSONContext(`{"resume_id":"resume-1","job_title":"后端工程师","job_description":"负责高并发服务开发，要求熟悉Go与分布式系统，三年以上经验。"}`)
	h.HandleCreateMatch(context.Background(), c)

	assert.Equal(t, consts.StatusOK, c.Response.StatusCode())
	assert.Equal(t, "resume-1", scorer.LastReq.ResumeID)
	assert.Equal(t, "后端工程师", scorer.LastReq.JobTitle)

	var result types.MatchResult
	require.NoError(t, json.Unmarshal(c.Response.Body(), &result))
	assert.Equal(t, "match-1", result.MatchID)
	assert.InDelta(t, 87.5, result.SimilarityScore, 0.001)
	assert.Equal(t, []string{"Kubernetes"}, result.SkillGaps.Partial)
}

func TestHandleCreateMatch_ValidationError(t *testing.T) {
	scorer := &mockScorer{Err: matching.NewValidationError("岗位描述过短")}
	h := NewMatchHandler(scorer, &mockSearcher{}, &mockReader{})

	c := newJSONContext(`{"resume_id":"resume-1","job_title":"x","job_description":"短"}`)
	h.HandleCreateMatch(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
	assert.Contains(t, string(c.Response.Body()), "岗位描述过短")
}

func TestHandleCreateMatch_ResumeNotFound(t *testing.T) {
	scorer := &mockScorer{Err: matching.NewNotFoundError("lookup_resume", "简历不存在")}
	h := NewMatchHandler(scorer, &mockSearcher{}, &mockReader{})

	c := newJSONContext(`{"resume_id":"missing","job_title":"后端工程师","job_description":"负责高并发服务开发，要求熟悉Go与分布式系统，三年以上经验。"}`)
	h.HandleCreateMatch(context.Background(), c)

	assert.Equal(t, consts.StatusNotFound, c.Response.StatusCode())
}

func TestHandleCreateMatch_EmbeddingUnavailable(t *testing.T) {
	scorer := &mockScorer{Err: matching.NewEmbeddingError("embed_job", "服务超时")}
	h := NewMatchHandler(scorer, &mockSearcher{}, &mockReader{})

	c := newJSONContext(`{"resume_id":"resume-1","job_title":"后端工程师","job_description":"负责高并发服务开发，要求熟悉Go与分布式系统，三年以上经验。"}`)
	h.HandleCreateMatch(context.Background(), c)

	assert.Equal(t, consts.StatusServiceUnavailable, c.Response.StatusCode())
}

func TestHandleCreateMatch_BadJSON(t *testing.T) {
	h := NewMatchHandler(&mockScorer{}, &mockSearcher{}, &mockReader{})

	c := newJSONContext(`{"resume_id":`)
	h.HandleCreateMatch(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestHandleGetMatch(t *testing.T) {
	reader := &mockReader{Match: &types.MatchResult{MatchID: "match-9", ResumeID: "resume-1"}}
	h := NewMatchHandler(&mockScorer{}, &mockSearcher{}, reader)

	c := app.NewContext(16)
	c.Params = append(c.Params, param.Param{Key: "match_id", Value: "match-9"})
	h.HandleGetMatch(context.Background(), c)

	assert.Equal(t, consts.StatusOK, c.Response.StatusCode())

	var result types.MatchResult
	require.NoError(t, json.Unmarshal(c.Response.Body(), &result))
	assert.Equal(t, "match-9", result.MatchID)
}

func TestHandleGetMatch_NotFound(t *testing.T) {
	reader := &mockReader{Err: matching.NewNotFoundError("get_match", "不存在")}
	h := NewMatchHandler(&mockScorer{}, &mockSearcher{}, reader)

	c := app.NewContext(16)
	c.Params = append(c.Params, param.Param{Key: "match_id", Value: "missing"})
	h.HandleGetMatch(context.Background(), c)

	assert.Equal(t, consts.StatusNotFound, c.Response.StatusCode())
}

func TestHandleListResumeMatches_EmptyIsNotNull(t *testing.T) {
	reader := &mockReader{Matches: nil}
	h := NewMatchHandler(&mockScorer{}, &mockSearcher{}, reader)

	c := app.NewContext(16)
	c.Params = append(c.Params, param.Param{Key: "resume_id", Value: "resume-1"})
	h.HandleListResumeMatches(context.Background(), c)

	assert.Equal(t, consts.StatusOK, c.Response.StatusCode())

	var resp struct {
		ResumeID string               `json:"resume_id"`
		Total    int                  `json:"total"`
		Data     []*types.MatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(c.Response.Body(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Data)
}

func TestHandleSearchCandidates(t *testing.T) {
	searcher := &mockSearcher{
		Candidates: []types.RankedCandidate{
			{ResumeID: "resume-2", SimilarityScore: 91.2, CurrentRole: "Go开发工程师", Skills: []string{"Go", "MySQL"}},
			{ResumeID: "resume-5", SimilarityScore: 76.4, Skills: []string{"Java"}},
		},
	}
	h := NewMatchHandler(&mockScorer{}, searcher, &mockReader{})

	c := newJSONContext(`{"job_description":"招聘熟悉Go与MySQL的后端开发，负责核心交易链路的设计与实现。","top_k":2}`)
	h.HandleSearchCandidates(context.Background(), c)

	assert.Equal(t, consts.StatusOK, c.Response.StatusCode())
	assert.Equal(t, 2, searcher.LastTopK)

	var resp struct {
		Total int                     `json:"total"`
		Data  []types.RankedCandidate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(c.Response.Body(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "resume-2", resp.Data[0].ResumeID)
	assert.InDelta(t, 91.2, resp.Data[0].SimilarityScore, 0.001)
}

func TestHandleSearchCandidates_ValidationError(t *testing.T) {
	searcher := &mockSearcher{Err: matching.NewValidationError("岗位描述不能为空")}
	h := NewMatchHandler(&mockScorer{}, searcher, &mockReader{})

	c := newJSONContext(`{"job_description":"","top_k":5}`)
	h.HandleSearchCandidates(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}
