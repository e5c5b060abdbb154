package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Resume 简历主表
type Resume struct {
	ResumeID         string         `gorm:"type:char(36);primaryKey"`
	CandidateName    string         `gorm:"type:varchar(255)"`
	RawText          string         `gorm:"type:mediumtext;not null"`
	SkillProfileJSON datatypes.JSON `gorm:"type:json"`
	OriginalPathOSS  string         `gorm:"type:varchar(1024)"`
	ParsedTextPath   string         `gorm:"type:varchar(1024)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Resume) TableName() string {
	return "resumes"
}

// Job 岗位信息表
type Job struct {
	JobID              string         `gorm:"type:char(36);primaryKey"`
	JobTitle           string         `gorm:"type:varchar(255);not null"`
	JobDescriptionText string         `gorm:"type:text;not null"`
	SkillProfileJSON   datatypes.JSON `gorm:"type:json"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Match 简历-岗位匹配评估表，(resume_id, job_id) 全局唯一，重复评分原地覆盖
type Match struct {
	MatchID                string         `gorm:"type:char(36);primaryKey"`
	ResumeID               string         `gorm:"type:char(36);not null;index:idx_matches_resume_id;uniqueIndex:idx_matches_resume_job_unique,priority:1"`
	JobID                  string         `gorm:"type:char(36);not null;index:idx_matches_job_id;uniqueIndex:idx_matches_resume_job_unique,priority:2"`
	SimilarityScore        float64        `gorm:"type:double;not null"`
	SkillGapsJSON          datatypes.JSON `gorm:"type:json"`
	MatchedSkillsJSON      datatypes.JSON `gorm:"type:json"`
	InterviewQuestionsJSON datatypes.JSON `gorm:"type:json"`
	RecommendationsJSON    datatypes.JSON `gorm:"type:json"`
	CreatedAt              time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt              time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	// 迁移时不建外键约束，删除简历/岗位时由应用层在同一事务中清理匹配记录
	Resume *Resume `gorm:"foreignKey:ResumeID;references:ResumeID"`
	Job    *Job    `gorm:"foreignKey:JobID;references:JobID"`
}

func (Match) TableName() string {
	return "matches"
}

// MarshalToJSON Helper function to convert any value to datatypes.JSON
func MarshalToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// UnmarshalFromJSON Helper function to decode datatypes.JSON into dest
func UnmarshalFromJSON(data datatypes.JSON, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
