package matching

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"resume-match-go/internal/types"
)

const (
	// MinCandidateTopK 候选人检索的返回数下限
	MinCandidateTopK = 1

	// MaxCandidateTopK 候选人检索的返回数上限
	MaxCandidateTopK = 20
)

// CandidateFinder 反向检索：按岗位描述查找最匹配的候选人。
type CandidateFinder struct {
	store    RecordStore
	index    VectorIndex
	embedder TextEmbedder
	logger   *log.Logger

	embedCharCap int
}

// FinderOption 候选人检索器的配置选项
type FinderOption func(*CandidateFinder)

// WithFinderLogger 设置日志记录器
func WithFinderLogger(logger *log.Logger) FinderOption {
	return func(f *CandidateFinder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFinderEmbedCharCap 设置向量化文本的长度上限
func WithFinderEmbedCharCap(limit int) FinderOption {
	return func(f *CandidateFinder) {
		if limit > 0 {
			f.embedCharCap = limit
		}
	}
}

// NewCandidateFinder 创建候选人检索器。store/index/embedder 均不可为空。
func NewCandidateFinder(
	store RecordStore,
	index VectorIndex,
	embedder TextEmbedder,
	options ...FinderOption,
) (*CandidateFinder, error) {
	if store == nil {
		return nil, errors.New("RecordStore 不能为空")
	}
	if index == nil {
		return nil, errors.New("VectorIndex 不能为空")
	}
	if embedder == nil {
		return nil, errors.New("TextEmbedder 不能为空")
	}

	f := &CandidateFinder{
		store:        store,
		index:        index,
		embedder:     embedder,
		logger:       log.New(io.Discard, "", 0),
		embedCharCap: DefaultEmbedCharCap,
	}

	for _, opt := range options {
		opt(f)
	}

	return f, nil
}

// FindCandidates 向量化岗位描述一次，检索最相似的简历向量并按相似度降序返回。
// topK 无论传入什么值都被钳制到 [MinCandidateTopK, MaxCandidateTopK]。
func (f *CandidateFinder) FindCandidates(ctx context.Context, jobDescription string, topK int) ([]types.RankedCandidate, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, NewValidationError("job_description 不能为空")
	}
	if topK < MinCandidateTopK {
		topK = MinCandidateTopK
	}
	if topK > MaxCandidateTopK {
		topK = MaxCandidateTopK
	}

	vectors, err := f.embedder.EmbedStrings(ctx, []string{TruncateRunes(jobDescription, f.embedCharCap)})
	if err != nil {
		return nil, NewEmbeddingError("embed_job_description", err.Error())
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, NewEmbeddingError("embed_job_description", "向量化服务返回空结果")
	}

	hits, err := f.index.Query(ctx, vectors[0], topK, types.VectorKindResume)
	if err != nil {
		return nil, NewVectorIndexError("query_candidates", err.Error())
	}

	// 向量索引与记录库之间允许短暂不一致，悬空的简历向量静默跳过
	candidates := make([]types.RankedCandidate, 0, len(hits))
	for _, hit := range hits {
		resume, err := f.store.GetResume(ctx, hit.OwnerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				f.logger.Printf("简历向量 %s 对应的记录已不存在，跳过", hit.VectorID)
				continue
			}
			return nil, NewRecordStoreError("load_candidate", err.Error())
		}
		profile := NormalizeProfile(&resume.Profile)
		candidates = append(candidates, types.RankedCandidate{
			ResumeID:        resume.ResumeID,
			SimilarityScore: CosineToPercentage(hit.Score),
			CandidateName:   resume.CandidateName,
			CurrentRole:     profile.CurrentRole,
			Skills:          CombinedSkillList(&profile),
		})
	}

	return candidates, nil
}
