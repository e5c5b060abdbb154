package matching

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"resume-match-go/internal/types"

	gofrsuuid "github.com/gofrs/uuid/v5"
	googleuuid "github.com/google/uuid"
)

const (
	// MinJobDescriptionChars 岗位描述的最小长度，不足即校验失败
	MinJobDescriptionChars = 50

	// DefaultSimilarityTopK 相似度查询时取回的岗位向量数
	DefaultSimilarityTopK = 10

	// DefaultEmbedCharCap 提交向量化服务前的文本长度上限，超长部分静默截断（始终保留前缀）
	DefaultEmbedCharCap = 8000

	// MaxInterviewQuestions 面试问题条数上限
	MaxInterviewQuestions = 7

	// MaxRecommendations 改进建议条数上限
	MaxRecommendations = 5
)

// JobIDNamespace is a dedicated namespace for deriving deterministic job IDs
// from the job title and description, so that a repeated match request for
// the same job content reuses the same (resumeId, jobId) pair.
// UUID generated via `uuidgen`
var JobIDNamespace = gofrsuuid.Must(gofrsuuid.FromString("9a1c5f6e-2d7b-4c83-9e0a-5b4f1f6c2d3e"))

// DeriveJobID 由岗位标题与描述确定性派生JobID。
func DeriveJobID(title, description string) string {
	return gofrsuuid.NewV5(JobIDNamespace, title+"\x00"+description).String()
}

// 生成服务不可用或输出不合法时使用的固定回退列表。
// 回退属于降级成功而非失败，结果层面与正常生成不可区分。
var (
	fallbackInterviewQuestions = []string{
		"请介绍一个你最有代表性的项目，以及你在其中承担的职责。",
		"你在过往工作中遇到过的最大技术挑战是什么，如何解决的？",
		"针对这个岗位的核心技能，你的掌握程度如何？请举例说明。",
		"你如何学习和掌握一项新技术？",
		"你为什么认为自己适合这个岗位？",
	}
	fallbackRecommendations = []string{
		"补充与岗位核心要求直接相关的项目经验。",
		"在简历中量化工作成果，突出可衡量的业务影响。",
		"针对岗位缺失的技能制定学习计划并体现学习进展。",
	}
)

// MatchRequest 一次匹配评分请求。
type MatchRequest struct {
	ResumeID       string `json:"resume_id"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
}

// Orchestrator 匹配流水线的编排器，按固定步骤串联外部协作方：
// 校验 → 查简历 → 抽取岗位技能 → 岗位向量化 → 落库岗位 → 写入岗位向量
// → 简历向量化 → 相似度查询 → 技能对账 → 生成问题/建议 → Upsert匹配结果。
// 每个外部调用单次尝试、不在本层重试；首个失败即中止并上抛类型化错误，
// 已写入的岗位/向量记录保持原样（已知的一致性缺口，不做补偿删除）。
type Orchestrator struct {
	store     RecordStore
	index     VectorIndex
	extractor SkillExtractor
	embedder  TextEmbedder
	generator ListGenerator
	cache     EmbeddingCache // 可为空
	publisher EventPublisher // 可为空
	logger    *log.Logger

	similarityTopK int
	embedCharCap   int
}

// OrchestratorOption 编排器的配置选项
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger 设置日志记录器
func WithOrchestratorLogger(logger *log.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSimilarityTopK 设置相似度查询取回的向量数
func WithSimilarityTopK(topK int) OrchestratorOption {
	return func(o *Orchestrator) {
		if topK > 0 {
			o.similarityTopK = topK
		}
	}
}

// WithEmbedCharCap 设置向量化文本的长度上限
func WithEmbedCharCap(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.embedCharCap = limit
		}
	}
}

// WithEmbeddingCache 设置岗位向量缓存
func WithEmbeddingCache(cache EmbeddingCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithEventPublisher 设置匹配完成事件的发布方
func WithEventPublisher(publisher EventPublisher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

// NewOrchestrator 创建匹配编排器。store/index/extractor/embedder/generator 均不可为空。
func NewOrchestrator(
	store RecordStore,
	index VectorIndex,
	extractor SkillExtractor,
	embedder TextEmbedder,
	generator ListGenerator,
	options ...OrchestratorOption,
) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("RecordStore 不能为空")
	}
	if index == nil {
		return nil, fmt.Errorf("VectorIndex 不能为空")
	}
	if extractor == nil {
		return nil, fmt.Errorf("SkillExtractor 不能为空")
	}
	if embedder == nil {
		return nil, fmt.Errorf("TextEmbedder 不能为空")
	}
	if generator == nil {
		return nil, fmt.Errorf("ListGenerator 不能为空")
	}

	o := &Orchestrator{
		store:          store,
		index:          index,
		extractor:      extractor,
		embedder:       embedder,
		generator:      generator,
		logger:         log.New(io.Discard, "", 0),
		similarityTopK: DefaultSimilarityTopK,
		embedCharCap:   DefaultEmbedCharCap,
	}

	for _, opt := range options {
		opt(o)
	}

	return o, nil
}

// ScoreMatch 执行一次完整的匹配评分，成功时返回已落库的匹配结果。
func (o *Orchestrator) ScoreMatch(ctx context.Context, req MatchRequest) (*types.MatchResult, error) {
	// VALIDATE_INPUT：快速失败，此前不发生任何外部调用
	if strings.TrimSpace(req.ResumeID) == "" {
		return nil, NewValidationError("resume_id 不能为空")
	}
	if strings.TrimSpace(req.JobTitle) == "" {
		return nil, NewValidationError("job_title 不能为空")
	}
	if utf8.RuneCountInString(req.JobDescription) < MinJobDescriptionChars {
		return nil, NewValidationError(fmt.Sprintf("job_description 长度不足%d个字符", MinJobDescriptionChars))
	}

	// LOOKUP_RESUME：必须先于一切写入，无效简历不得留下岗位/向量残留
	resume, err := o.store.GetResume(ctx, req.ResumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewNotFoundError("lookup_resume", fmt.Sprintf("简历 %s 不存在", req.ResumeID))
		}
		return nil, NewRecordStoreError("lookup_resume", err.Error())
	}
	resumeProfile := NormalizeProfile(&resume.Profile)

	// EXTRACT_JOB_SKILLS
	rawJobProfile, err := o.extractor.ExtractSkills(ctx, req.JobDescription)
	if err != nil {
		return nil, NewExtractionError("extract_job_skills", err.Error())
	}
	jobProfile := NormalizeProfile(rawJobProfile)

	jobID := DeriveJobID(req.JobTitle, req.JobDescription)

	// EMBED_JOB：优先走缓存，缓存失败静默穿透到向量化服务
	jobVector, err := o.jobVector(ctx, jobID, req.JobDescription)
	if err != nil {
		return nil, NewEmbeddingError("embed_job", err.Error())
	}

	// PERSIST_JOB_RECORD
	job := &types.JobRecord{
		JobID:       jobID,
		Title:       req.JobTitle,
		Description: req.JobDescription,
		Profile:     jobProfile,
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, NewRecordStoreError("persist_job_record", err.Error())
	}

	// INDEX_JOB_VECTOR。此步之后的失败不回滚已落库的岗位记录。
	jobVectorID := types.VectorKindJob + "_" + jobID
	rec := &types.VectorRecord{
		VectorID:  jobVectorID,
		Kind:      types.VectorKindJob,
		OwnerID:   jobID,
		Embedding: jobVector,
		Skills:    CombinedSkillList(&jobProfile),
		Title:     req.JobTitle,
	}
	if err := o.index.UpsertRecord(ctx, rec); err != nil {
		return nil, NewVectorIndexError("index_job_vector", err.Error())
	}

	// EMBED_RESUME
	resumeVector, err := o.embedText(ctx, resume.RawText)
	if err != nil {
		return nil, NewEmbeddingError("embed_resume", err.Error())
	}

	// QUERY_SIMILARITY：在topK个最近的岗位向量中定位刚写入的岗位，
	// 未命中时相似度降级为0而不是报错。
	hits, err := o.index.Query(ctx, resumeVector, o.similarityTopK, types.VectorKindJob)
	if err != nil {
		return nil, NewVectorIndexError("query_similarity", err.Error())
	}
	similarity := 0.0
	found := false
	// 索引后端返回的点ID不一定保留逻辑VectorID，按OwnerID定位
	for _, hit := range hits {
		if hit.OwnerID == jobID {
			similarity = CosineToPercentage(hit.Score)
			found = true
			break
		}
	}
	if !found {
		o.logger.Printf("岗位向量 %s 不在top%d相似结果中，相似度按0处理", jobVectorID, o.similarityTopK)
	}

	// RECONCILE_GAPS
	gap := ReconcileSkills(&resumeProfile, &jobProfile)

	// GENERATE_QUESTIONS / GENERATE_RECOMMENDATIONS：失败时使用固定回退列表
	questions := o.generateList(ctx, questionPrompt(req.JobTitle, gap), MaxInterviewQuestions, fallbackInterviewQuestions)
	recommendations := o.generateList(ctx, recommendationPrompt(req.JobTitle, gap), MaxRecommendations, fallbackRecommendations)

	// UPSERT_MATCH：以 (resumeID, jobID) 为唯一键原地覆盖
	result := &types.MatchResult{
		MatchID:            googleuuid.NewString(),
		ResumeID:           req.ResumeID,
		JobID:              jobID,
		SimilarityScore:    similarity,
		SkillGaps:          gap,
		MatchedSkills:      gap.Matched,
		InterviewQuestions: questions,
		Recommendations:    recommendations,
	}
	stored, err := o.store.UpsertMatch(ctx, result)
	if err != nil {
		return nil, NewRecordStoreError("upsert_match", err.Error())
	}

	if o.publisher != nil {
		if err := o.publisher.PublishMatchCompleted(ctx, stored); err != nil {
			o.logger.Printf("发布匹配完成事件失败 (matchID=%s): %v", stored.MatchID, err)
		}
	}

	return stored, nil
}

// jobVector 获取岗位描述的向量，优先命中缓存。
func (o *Orchestrator) jobVector(ctx context.Context, jobID, description string) ([]float64, error) {
	if o.cache != nil {
		if vec, err := o.cache.GetJobVector(ctx, jobID); err == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := o.embedText(ctx, description)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		if err := o.cache.SetJobVector(ctx, jobID, vec); err != nil {
			o.logger.Printf("缓存岗位向量失败 (jobID=%s): %v", jobID, err)
		}
	}
	return vec, nil
}

// embedText 截断到长度上限后调用向量化服务。
func (o *Orchestrator) embedText(ctx context.Context, text string) ([]float64, error) {
	vectors, err := o.embedder.EmbedStrings(ctx, []string{TruncateRunes(text, o.embedCharCap)})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("向量化服务返回空结果")
	}
	return vectors[0], nil
}

// generateList 调用生成服务，失败或输出为空时返回回退列表，并截断到上限条数。
func (o *Orchestrator) generateList(ctx context.Context, prompt string, maxItems int, fallback []string) []string {
	items, err := o.generator.GenerateList(ctx, prompt, maxItems)
	if err != nil || len(items) == 0 {
		if err != nil {
			o.logger.Printf("生成服务调用失败，使用回退列表: %v", err)
		}
		items = fallback
	}
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// TruncateRunes 按字符数截断文本，始终保留前缀。
func TruncateRunes(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

func questionPrompt(jobTitle string, gap types.SkillGap) string {
	return fmt.Sprintf(`你是一位资深技术面试官。请针对岗位"%s"为候选人设计面试问题。
候选人已匹配的技能: %s
候选人缺失的技能: %s

要求:
- 输出不超过%d个问题
- 重点考察已匹配技能的实际深度，并探查缺失技能的可迁移能力
- 只输出一个JSON字符串数组，不要输出任何其他文本或Markdown标记`,
		jobTitle,
		strings.Join(gap.Matched, ", "),
		strings.Join(gap.Missing, ", "),
		MaxInterviewQuestions)
}

func recommendationPrompt(jobTitle string, gap types.SkillGap) string {
	return fmt.Sprintf(`你是一位资深职业顾问。请针对岗位"%s"为候选人给出简历与技能提升建议。
候选人已匹配的技能: %s
候选人部分匹配的技能: %s
候选人缺失的技能: %s

要求:
- 输出不超过%d条建议，每条具体可执行
- 只输出一个JSON字符串数组，不要输出任何其他文本或Markdown标记`,
		jobTitle,
		strings.Join(gap.Matched, ", "),
		strings.Join(gap.Partial, ", "),
		strings.Join(gap.Missing, ", "),
		MaxRecommendations)
}
