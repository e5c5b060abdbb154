package storage

import "time"

// MatchCompletedMessage 匹配完成消息
type MatchCompletedMessage struct {
	MatchID         string    `json:"match_id"`         // 匹配结果ID
	ResumeID        string    `json:"resume_id"`        // 简历ID
	JobID           string    `json:"job_id"`           // 岗位ID
	SimilarityScore float64   `json:"similarity_score"` // 相似度百分比
	MatchedSkills   []string  `json:"matched_skills"`   // 完全匹配的技能
	MissingSkills   []string  `json:"missing_skills"`   // 缺失的技能
	CompletedAt     time.Time `json:"completed_at"`     // 完成时间
}

// ResumeIndexedMessage 简历入库完成消息
type ResumeIndexedMessage struct {
	ResumeID      string    `json:"resume_id"`                // 简历ID
	CandidateName string    `json:"candidate_name,omitempty"` // 候选人姓名
	OriginalPath  string    `json:"original_path,omitempty"`  // 原始文件在MinIO中的路径
	ParsedPath    string    `json:"parsed_path,omitempty"`    // 解析文本在MinIO中的路径
	IndexedAt     time.Time `json:"indexed_at"`               // 入库时间
}
