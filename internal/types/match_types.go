package types

// 向量记录的种类标识，向量ID的格式固定为 "<kind>_<ownerId>"
const (
	VectorKindResume = "resume"
	VectorKindJob    = "job"
)

// SkillProfile 技能抽取服务从自由文本中提取出的标准化技能画像。
// 所有列表字段在归一化后保证非nil（缺失字段一律补成空列表），
// 字符串保留原始大小写用于展示，比较时统一转为小写。
type SkillProfile struct {
	TechnicalSkills   []string `json:"technical_skills"`
	Frameworks        []string `json:"frameworks"`
	Languages         []string `json:"languages"`
	Tools             []string `json:"tools"`
	SoftSkills        []string `json:"soft_skills"`
	YearsOfExperience *float64 `json:"years_of_experience,omitempty"`
	CurrentRole       string   `json:"current_role,omitempty"`
	Education         []string `json:"education"`
	Certifications    []string `json:"certifications"`
}

// SkillGap 技能差距的三分结果。
// 分区不变式：岗位合并技能列表中的每项技能恰好落入三个列表之一，
// 且顺序与岗位技能列表的原始顺序一致。
type SkillGap struct {
	Matched []string `json:"matched"`
	Partial []string `json:"partial"`
	Missing []string `json:"missing"`
}

// MatchResult 一次简历-岗位匹配的完整结果。
// 以 (ResumeID, JobID) 为唯一键做Upsert：同一对的重复匹配请求原地覆盖旧结果。
type MatchResult struct {
	MatchID            string   `json:"match_id"`
	ResumeID           string   `json:"resume_id"`
	JobID              string   `json:"job_id"`
	SimilarityScore    float64  `json:"similarity_score"` // [0,100]，保留1位小数
	SkillGaps          SkillGap `json:"skill_gaps"`
	MatchedSkills      []string `json:"matched_skills"`
	InterviewQuestions []string `json:"interview_questions"` // 最多7条
	Recommendations    []string `json:"recommendations"`     // 最多5条
}

// VectorRecord 向量索引中的一条记录，每份简历/岗位各一条。
type VectorRecord struct {
	VectorID  string    `json:"vector_id"` // "<kind>_<ownerId>"
	Kind      string    `json:"kind"`
	OwnerID   string    `json:"owner_id"`
	Embedding []float64 `json:"embedding"`
	Skills    []string  `json:"skills"`
	Title     string    `json:"title,omitempty"`
}

// VectorHit 向量索引查询返回的一条命中，按相似度降序排列。
type VectorHit struct {
	VectorID string
	Score    float64 // 余弦相似度原始分，范围 [-1,1]
	Kind     string
	OwnerID  string
	Title    string
	Skills   []string
}

// ResumeRecord 记录存储中的简历实体。
type ResumeRecord struct {
	ResumeID      string       `json:"resume_id"`
	CandidateName string       `json:"candidate_name,omitempty"`
	RawText       string       `json:"raw_text"`
	Profile       SkillProfile `json:"profile"`
	OriginalPath  string       `json:"original_path,omitempty"`
	ParsedPath    string       `json:"parsed_path,omitempty"`
}

// JobRecord 记录存储中的岗位实体。JobID由岗位标题+描述确定性派生，
// 同一岗位内容的重复匹配请求复用同一条记录。
type JobRecord struct {
	JobID       string       `json:"job_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Profile     SkillProfile `json:"profile"`
}

// RankedCandidate 候选人检索的单条结果。
type RankedCandidate struct {
	ResumeID        string   `json:"resume_id"`
	SimilarityScore float64  `json:"similarity_score"` // [0,100]，保留1位小数
	CandidateName   string   `json:"candidate_name,omitempty"`
	CurrentRole     string   `json:"current_role,omitempty"`
	Skills          []string `json:"skills"`
}
