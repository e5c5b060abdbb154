package matching

import (
	"context"

	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

// 本文件定义匹配流水线消费的外部协作方契约。
// 全部以窄接口注入，便于在测试中用确定性的桩替换真实的模型调用。

// SkillExtractor 技能抽取服务：从自由文本中提取标准化技能画像。
// 服务不可达时返回错误；输出结构不完整时由实现方回退为空画像而不是报错。
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, text string) (*types.SkillProfile, error)
}

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int
}

// ListGenerator 文本到字符串列表的生成服务（面试问题、改进建议）。
// 输出缺失或不是列表形状时返回错误，由调用方替换为固定的回退列表。
type ListGenerator interface {
	GenerateList(ctx context.Context, prompt string, maxItems int) ([]string, error)
}

// VectorIndex 向量索引：按 "<kind>_<ownerId>" 确定性标识记录。
type VectorIndex interface {
	// UpsertRecord 插入或覆盖一条向量记录
	UpsertRecord(ctx context.Context, rec *types.VectorRecord) error

	// Query 返回按相似度降序排列的topK条命中，kind非空时按种类过滤。
	// 同分命中的先后顺序由索引内部决定，调用方不得依赖。
	Query(ctx context.Context, vector []float64, topK int, kind string) ([]types.VectorHit, error)

	// DeleteRecord 删除一条向量记录，记录不存在时不报错
	DeleteRecord(ctx context.Context, kind, ownerID string) error
}

// RecordStore 记录存储：按唯一ID做CRUD。
// 删除简历或岗位必须级联删除依赖的匹配记录。
type RecordStore interface {
	// GetResume 按ID查询简历，不存在时返回可被 errors.Is(err, ErrNotFound) 识别的错误
	GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error)

	// SaveJob 按JobID插入或覆盖岗位记录
	SaveJob(ctx context.Context, job *types.JobRecord) error

	// UpsertMatch 以 (ResumeID, JobID) 为唯一键插入或原地覆盖匹配结果，
	// 返回存储后的结果（覆盖时保留原MatchID）。并发重复提交按last-write-wins处理。
	UpsertMatch(ctx context.Context, m *types.MatchResult) (*types.MatchResult, error)
}

// EmbeddingCache 岗位描述向量的缓存，命中失败静默穿透到向量化服务。
type EmbeddingCache interface {
	GetJobVector(ctx context.Context, jobID string) ([]float64, error)
	SetJobVector(ctx context.Context, jobID string, vector []float64) error
}

// EventPublisher 匹配完成事件的发布方。发布失败只记日志，不影响匹配结果。
type EventPublisher interface {
	PublishMatchCompleted(ctx context.Context, m *types.MatchResult) error
}
