package matching

import (
	"context"
	"errors"
	"testing"

	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRecordStore 模拟记录存储
type MockRecordStore struct {
	resume *types.ResumeRecord

	getResumeErr   error
	saveJobErr     error
	upsertMatchErr error

	getResumeCalls   int
	saveJobCalls     int
	upsertMatchCalls int

	savedJob      *types.JobRecord
	upsertedMatch *types.MatchResult
}

func (m *MockRecordStore) GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error) {
	m.getResumeCalls++
	if m.getResumeErr != nil {
		return nil, m.getResumeErr
	}
	return m.resume, nil
}

func (m *MockRecordStore) SaveJob(ctx context.Context, job *types.JobRecord) error {
	m.saveJobCalls++
	m.savedJob = job
	return m.saveJobErr
}

func (m *MockRecordStore) UpsertMatch(ctx context.Context, match *types.MatchResult) (*types.MatchResult, error) {
	m.upsertMatchCalls++
	if m.upsertMatchErr != nil {
		return nil, m.upsertMatchErr
	}
	m.upsertedMatch = match
	return match, nil
}

// MockVectorIndex 模拟向量索引
type MockVectorIndex struct {
	hits []types.VectorHit

	upsertErr error
	queryErr  error
	deleteErr error

	upsertCalls int
	queryCalls  int

	upsertedRecord *types.VectorRecord
}

func (m *MockVectorIndex) UpsertRecord(ctx context.Context, record *types.VectorRecord) error {
	m.upsertCalls++
	m.upsertedRecord = record
	return m.upsertErr
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float64, topK int, kind string) ([]types.VectorHit, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.hits, nil
}

func (m *MockVectorIndex) DeleteRecord(ctx context.Context, kind, ownerID string) error {
	return m.deleteErr
}

// MockSkillExtractor 模拟技能抽取器
type MockSkillExtractor struct {
	profile *types.SkillProfile
	err     error
	calls   int
}

func (m *MockSkillExtractor) ExtractSkills(ctx context.Context, text string) (*types.SkillProfile, error) {
	m.calls++
	return m.profile, m.err
}

// MockTextEmbedder 模拟向量化服务
type MockTextEmbedder struct {
	vector []float64
	err    error
	calls  int
	texts  []string
}

func (m *MockTextEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	m.calls++
	m.texts = append(m.texts, texts...)
	if m.err != nil {
		return nil, m.err
	}
	return [][]float64{m.vector}, nil
}

func (m *MockTextEmbedder) GetDimensions() int {
	return len(m.vector)
}

// MockListGenerator 模拟列表生成器
type MockListGenerator struct {
	items []string
	err   error
	calls int
}

func (m *MockListGenerator) GenerateList(ctx context.Context, prompt string, maxItems int) ([]string, error) {
	m.calls++
	return m.items, m.err
}

// MockEmbeddingCache 模拟岗位向量缓存
type MockEmbeddingCache struct {
	vectors map[string][]float64

	getCalls int
	setCalls int
	setErr   error
}

func (m *MockEmbeddingCache) GetJobVector(ctx context.Context, jobID string) ([]float64, error) {
	m.getCalls++
	if vec, ok := m.vectors[jobID]; ok {
		return vec, nil
	}
	return nil, ErrNotFound
}

func (m *MockEmbeddingCache) SetJobVector(ctx context.Context, jobID string, vector []float64) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	if m.vectors == nil {
		m.vectors = make(map[string][]float64)
	}
	m.vectors[jobID] = vector
	return nil
}

// MockEventPublisher 模拟事件发布方
type MockEventPublisher struct {
	err       error
	calls     int
	published *types.MatchResult
}

func (m *MockEventPublisher) PublishMatchCompleted(ctx context.Context, match *types.MatchResult) error {
	m.calls++
	m.published = match
	return m.err
}

const validJobDescription = "负责公司核心后端服务的设计与开发，要求熟悉Go语言、MySQL与Redis，具备良好的分布式系统经验。"

func newTestFixture() (*MockRecordStore, *MockVectorIndex, *MockSkillExtractor, *MockTextEmbedder, *MockListGenerator) {
	store := &MockRecordStore{
		resume: &types.ResumeRecord{
			ResumeID:      "resume-1",
			CandidateName: "张三",
			RawText:       "精通Go语言与MySQL，五年后端开发经验。",
			Profile: types.SkillProfile{
				TechnicalSkills: []string{"Go", "MySQL"},
			},
		},
	}
	index := &MockVectorIndex{}
	extractor := &MockSkillExtractor{
		profile: &types.SkillProfile{
			TechnicalSkills: []string{"Go", "Redis"},
		},
	}
	embedder := &MockTextEmbedder{vector: []float64{0.1, 0.2, 0.3}}
	generator := &MockListGenerator{items: []string{"请介绍你最熟悉的Go项目。"}}
	return store, index, extractor, embedder, generator
}

func TestScoreMatch_Success(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	jobID := DeriveJobID("后端工程师", validJobDescription)
	// Qdrant等后端返回的点ID是派生UUID而非逻辑VectorID，命中靠OwnerID判定
	index.hits = []types.VectorHit{
		{VectorID: "8a6f4f0e-5f2b-5d3c-9c71-2f8f4ab01d42", Score: 0.8, Kind: types.VectorKindJob, OwnerID: jobID},
	}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	result, err := orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID:       "resume-1",
		JobTitle:       "后端工程师",
		JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, "resume-1", result.ResumeID)
	assert.Equal(t, jobID, result.JobID)
	assert.InDelta(t, 90.0, result.SimilarityScore, 1e-9)
	assert.Equal(t, []string{"Go"}, result.SkillGaps.Matched)
	assert.Equal(t, []string{"Redis"}, result.SkillGaps.Missing)
	assert.Equal(t, result.SkillGaps.Matched, result.MatchedSkills)
	assert.NotEmpty(t, result.InterviewQuestions)
	assert.NotEmpty(t, result.Recommendations)
	assert.NotEmpty(t, result.MatchID)

	assert.Equal(t, 1, store.saveJobCalls)
	assert.Equal(t, 1, store.upsertMatchCalls)
	assert.Equal(t, 1, index.upsertCalls)
	assert.Equal(t, 2, embedder.calls) // 岗位一次，简历一次
	require.NotNil(t, index.upsertedRecord)
	assert.Equal(t, types.VectorKindJob, index.upsertedRecord.Kind)
	assert.Equal(t, jobID, index.upsertedRecord.OwnerID)
}

func TestScoreMatch_ValidationFailsBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name string
		req  MatchRequest
	}{
		{"空简历ID", MatchRequest{ResumeID: " ", JobTitle: "后端工程师", JobDescription: validJobDescription}},
		{"空岗位标题", MatchRequest{ResumeID: "resume-1", JobTitle: "", JobDescription: validJobDescription}},
		{"岗位描述过短", MatchRequest{ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: "太短的描述"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, index, extractor, embedder, generator := newTestFixture()
			orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
			require.NoError(t, err)

			_, err = orch.ScoreMatch(context.Background(), tt.req)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			// 校验失败不得触发任何外部调用
			assert.Zero(t, store.getResumeCalls)
			assert.Zero(t, extractor.calls)
			assert.Zero(t, embedder.calls)
			assert.Zero(t, generator.calls)
		})
	}
}

func TestScoreMatch_DescriptionLengthBoundary(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	// 恰好49个字符应失败，50个字符应通过校验
	desc49 := make([]rune, 49)
	for i := range desc49 {
		desc49[i] = '描'
	}
	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: string(desc49),
	})
	assert.ErrorIs(t, err, ErrValidation)

	desc50 := string(desc49) + "述"
	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: desc50,
	})
	assert.NoError(t, err)
}

func TestScoreMatch_ResumeNotFound(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	store.getResumeErr = ErrNotFound

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "missing", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, extractor.calls)
	assert.Zero(t, embedder.calls)
}

func TestScoreMatch_ExtractionFailure(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	extractor.err = errors.New("上游服务超时")

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Zero(t, store.saveJobCalls)
	assert.Zero(t, index.upsertCalls)
}

func TestScoreMatch_SimilarityMissDegradesToZero(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	// top结果里没有刚写入的岗位向量
	index.hits = []types.VectorHit{
		{VectorID: "4c1d4d6a-0b9e-5a77-8a42-6c0f6f9ce513", Score: 0.9, Kind: types.VectorKindJob, OwnerID: "other"},
	}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	result, err := orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.SimilarityScore)
	// 流水线继续完成，匹配结果照常落库
	assert.Equal(t, 1, store.upsertMatchCalls)
}

func TestScoreMatch_GeneratorFallback(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	generator.err = errors.New("生成服务不可用")

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	result, err := orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	// 生成失败降级为固定回退列表，不影响整体成功
	require.NoError(t, err)
	assert.Equal(t, fallbackInterviewQuestions, result.InterviewQuestions)
	assert.Equal(t, fallbackRecommendations, result.Recommendations)
	assert.LessOrEqual(t, len(result.InterviewQuestions), MaxInterviewQuestions)
	assert.LessOrEqual(t, len(result.Recommendations), MaxRecommendations)
}

func TestScoreMatch_GeneratorOutputCapped(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	generator.items = []string{"一", "二", "三", "四", "五", "六", "七", "八", "九"}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator)
	require.NoError(t, err)

	result, err := orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Len(t, result.InterviewQuestions, MaxInterviewQuestions)
	assert.Len(t, result.Recommendations, MaxRecommendations)
}

func TestScoreMatch_DeterministicJobID(t *testing.T) {
	first := DeriveJobID("后端工程师", validJobDescription)
	second := DeriveJobID("后端工程师", validJobDescription)
	assert.Equal(t, first, second)

	// 标题与描述的边界不可混淆
	assert.NotEqual(t, DeriveJobID("ab", "c"), DeriveJobID("a", "bc"))
}

func TestScoreMatch_EmbeddingCacheHitSkipsEmbedJob(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	jobID := DeriveJobID("后端工程师", validJobDescription)
	cache := &MockEmbeddingCache{
		vectors: map[string][]float64{jobID: {0.5, 0.5, 0.5}},
	}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator,
		WithEmbeddingCache(cache))
	require.NoError(t, err)

	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, cache.getCalls)
	assert.Zero(t, cache.setCalls)
	// 缓存命中后只剩简历需要向量化
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, index.upsertedRecord.Embedding)
}

func TestScoreMatch_CacheSetFailureIsNonFatal(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	cache := &MockEmbeddingCache{setErr: errors.New("redis连接断开")}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator,
		WithEmbeddingCache(cache))
	require.NoError(t, err)

	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, cache.setCalls)
}

func TestScoreMatch_PublisherFailureIsNonFatal(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()
	publisher := &MockEventPublisher{err: errors.New("交换机不存在")}

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator,
		WithEventPublisher(publisher))
	require.NoError(t, err)

	result, err := orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, publisher.calls)
	assert.NotNil(t, result)
}

func TestScoreMatch_EmbedTextTruncated(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()

	longTail := make([]rune, 100)
	for i := range longTail {
		longTail[i] = '长'
	}
	store.resume.RawText = validJobDescription + string(longTail)

	orch, err := NewOrchestrator(store, index, extractor, embedder, generator,
		WithEmbedCharCap(60))
	require.NoError(t, err)

	_, err = orch.ScoreMatch(context.Background(), MatchRequest{
		ResumeID: "resume-1", JobTitle: "后端工程师", JobDescription: validJobDescription,
	})

	require.NoError(t, err)
	for _, text := range embedder.texts {
		assert.LessOrEqual(t, len([]rune(text)), 60)
	}
}

func TestNewOrchestrator_RequiresCollaborators(t *testing.T) {
	store, index, extractor, embedder, generator := newTestFixture()

	_, err := NewOrchestrator(nil, index, extractor, embedder, generator)
	assert.Error(t, err)
	_, err = NewOrchestrator(store, nil, extractor, embedder, generator)
	assert.Error(t, err)
	_, err = NewOrchestrator(store, index, nil, embedder, generator)
	assert.Error(t, err)
	_, err = NewOrchestrator(store, index, extractor, nil, generator)
	assert.Error(t, err)
	_, err = NewOrchestrator(store, index, extractor, embedder, nil)
	assert.Error(t, err)
}
