package matching

import (
	"context"
	"errors"
	"testing"

	"resume-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFinderStore 模拟候选人检索用的记录存储
type MockFinderStore struct {
	resumes map[string]*types.ResumeRecord
	getErr  error
}

func (m *MockFinderStore) GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if r, ok := m.resumes[resumeID]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (m *MockFinderStore) SaveJob(ctx context.Context, job *types.JobRecord) error {
	return nil
}

func (m *MockFinderStore) UpsertMatch(ctx context.Context, match *types.MatchResult) (*types.MatchResult, error) {
	return match, nil
}

// MockFinderIndex 模拟候选人检索用的向量索引
type MockFinderIndex struct {
	hits      []types.VectorHit
	queryErr  error
	lastTopK  int
	lastKind  string
	queryDone int
}

func (m *MockFinderIndex) UpsertRecord(ctx context.Context, record *types.VectorRecord) error {
	return nil
}

func (m *MockFinderIndex) Query(ctx context.Context, vector []float64, topK int, kind string) ([]types.VectorHit, error) {
	m.queryDone++
	m.lastTopK = topK
	m.lastKind = kind
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.hits, nil
}

func (m *MockFinderIndex) DeleteRecord(ctx context.Context, kind, ownerID string) error {
	return nil
}

func newFinderFixture() (*MockFinderStore, *MockFinderIndex, *MockTextEmbedder) {
	store := &MockFinderStore{
		resumes: map[string]*types.ResumeRecord{
			"resume-1": {
				ResumeID:      "resume-1",
				CandidateName: "张三",
				Profile: types.SkillProfile{
					TechnicalSkills: []string{"Go", "MySQL"},
					CurrentRole:     "后端工程师",
				},
			},
			"resume-2": {
				ResumeID:      "resume-2",
				CandidateName: "李四",
				Profile: types.SkillProfile{
					TechnicalSkills: []string{"Python"},
				},
			},
		},
	}
	index := &MockFinderIndex{
		hits: []types.VectorHit{
			{VectorID: types.VectorKindResume + "_resume-1", Score: 0.9, Kind: types.VectorKindResume, OwnerID: "resume-1"},
			{VectorID: types.VectorKindResume + "_resume-2", Score: 0.4, Kind: types.VectorKindResume, OwnerID: "resume-2"},
		},
	}
	embedder := &MockTextEmbedder{vector: []float64{0.1, 0.2}}
	return store, index, embedder
}

func TestFindCandidates_RankedResults(t *testing.T) {
	store, index, embedder := newFinderFixture()
	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	candidates, err := finder.FindCandidates(context.Background(), "需要Go后端工程师", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "resume-1", candidates[0].ResumeID)
	assert.InDelta(t, 95.0, candidates[0].SimilarityScore, 1e-9)
	assert.Equal(t, "张三", candidates[0].CandidateName)
	assert.Equal(t, "后端工程师", candidates[0].CurrentRole)
	assert.Equal(t, []string{"Go", "MySQL"}, candidates[0].Skills)
	assert.Equal(t, "resume-2", candidates[1].ResumeID)
	assert.InDelta(t, 70.0, candidates[1].SimilarityScore, 1e-9)

	// 岗位描述只向量化一次，且只检索简历向量
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, types.VectorKindResume, index.lastKind)
}

func TestFindCandidates_TopKClamped(t *testing.T) {
	store, index, embedder := newFinderFixture()
	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	_, err = finder.FindCandidates(context.Background(), "需要Go后端工程师", 0)
	require.NoError(t, err)
	assert.Equal(t, MinCandidateTopK, index.lastTopK)

	_, err = finder.FindCandidates(context.Background(), "需要Go后端工程师", -3)
	require.NoError(t, err)
	assert.Equal(t, MinCandidateTopK, index.lastTopK)

	_, err = finder.FindCandidates(context.Background(), "需要Go后端工程师", 100)
	require.NoError(t, err)
	assert.Equal(t, MaxCandidateTopK, index.lastTopK)
}

func TestFindCandidates_EmptyDescription(t *testing.T) {
	store, index, embedder := newFinderFixture()
	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	_, err = finder.FindCandidates(context.Background(), "   ", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, index.queryDone)
}

func TestFindCandidates_DanglingVectorSkipped(t *testing.T) {
	store, index, embedder := newFinderFixture()
	// 向量索引里有一个记录库已删除的简历
	index.hits = append(index.hits, types.VectorHit{
		VectorID: types.VectorKindResume + "_resume-gone",
		Score:    0.95,
		Kind:     types.VectorKindResume,
		OwnerID:  "resume-gone",
	})

	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	candidates, err := finder.FindCandidates(context.Background(), "需要Go后端工程师", 5)

	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, "resume-gone", c.ResumeID)
	}
}

func TestFindCandidates_StoreFailureIsFatal(t *testing.T) {
	store, index, embedder := newFinderFixture()
	store.getErr = errors.New("数据库连接失败")

	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	_, err = finder.FindCandidates(context.Background(), "需要Go后端工程师", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordStoreFailed)
}

func TestFindCandidates_EmptyIndex(t *testing.T) {
	store, index, embedder := newFinderFixture()
	index.hits = nil

	finder, err := NewCandidateFinder(store, index, embedder)
	require.NoError(t, err)

	candidates, err := finder.FindCandidates(context.Background(), "需要Go后端工程师", 5)

	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}
