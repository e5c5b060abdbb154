package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/matching"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("resume-match-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer   trace.Tracer
	dbName   string
	skipHook bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}
	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.skipHook && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)

		// span单独存入上下文，after回调只结束自己创建的span
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

type gormSpanKey struct{}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				// 未找到记录属于正常业务路径，不作为错误上报
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:   mysqlTracer,
		dbName:   dbName,
		skipHook: true,
	}
}

// 确保MySQL实现了记录存储接口
var _ matching.RecordStore = (*MySQL)(nil)

// MySQL 提供简历、岗位与匹配结果的关系存储
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构，迁移期间关闭SQL日志
func (m *MySQL) autoMigrateSchema() error {
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	if err := silentDB.AutoMigrate(
		&models.Resume{},
		&models.Job{},
		&models.Match{},
	); err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// SaveResume 写入或覆盖简历记录
func (m *MySQL) SaveResume(ctx context.Context, resume *types.ResumeRecord) error {
	row, err := resumeToModel(resume)
	if err != nil {
		return err
	}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resume_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"candidate_name", "raw_text", "skill_profile_json",
			"original_path_oss", "parsed_text_path",
		}),
	}).Create(row).Error
}

// GetResume 通过ID获取简历记录，未找到时返回 matching.ErrNotFound
func (m *MySQL) GetResume(ctx context.Context, resumeID string) (*types.ResumeRecord, error) {
	var row models.Resume
	if err := m.db.WithContext(ctx).Where("resume_id = ?", resumeID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, matching.ErrNotFound
		}
		return nil, fmt.Errorf("查询简历失败: %w", err)
	}
	return resumeFromModel(&row)
}

// ListResumes 分页列出简历记录，按创建时间倒序
func (m *MySQL) ListResumes(ctx context.Context, offset, limit int) ([]*types.ResumeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.Resume
	if err := m.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("列出简历失败: %w", err)
	}
	resumes := make([]*types.ResumeRecord, 0, len(rows))
	for i := range rows {
		r, err := resumeFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, r)
	}
	return resumes, nil
}

// DeleteResume 删除简历记录，依赖的匹配结果在同一事务中级联删除。
// 迁移时不建外键约束，级联由应用层保证。未找到时返回 matching.ErrNotFound。
func (m *MySQL) DeleteResume(ctx context.Context, resumeID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", resumeID).Delete(&models.Match{}).Error; err != nil {
			return fmt.Errorf("删除简历关联的匹配结果失败: %w", err)
		}
		result := tx.Where("resume_id = ?", resumeID).Delete(&models.Resume{})
		if result.Error != nil {
			return fmt.Errorf("删除简历失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return matching.ErrNotFound
		}
		return nil
	})
}

// SaveJob 写入或覆盖岗位记录。JobID由内容确定性派生，重复写入等价于覆盖。
func (m *MySQL) SaveJob(ctx context.Context, job *types.JobRecord) error {
	profileJSON, err := models.MarshalToJSON(job.Profile)
	if err != nil {
		return fmt.Errorf("序列化岗位技能画像失败: %w", err)
	}
	row := &models.Job{
		JobID:              job.JobID,
		JobTitle:           job.Title,
		JobDescriptionText: job.Description,
		SkillProfileJSON:   profileJSON,
	}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"job_title", "job_description_text", "skill_profile_json",
		}),
	}).Create(row).Error
}

// GetJob 通过ID获取岗位记录，未找到时返回 matching.ErrNotFound
func (m *MySQL) GetJob(ctx context.Context, jobID string) (*types.JobRecord, error) {
	var row models.Job
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, matching.ErrNotFound
		}
		return nil, fmt.Errorf("查询岗位失败: %w", err)
	}

	job := &types.JobRecord{
		JobID:       row.JobID,
		Title:       row.JobTitle,
		Description: row.JobDescriptionText,
	}
	if err := models.UnmarshalFromJSON(row.SkillProfileJSON, &job.Profile); err != nil {
		return nil, fmt.Errorf("解析岗位技能画像失败: %w", err)
	}
	return job, nil
}

// DeleteJob 删除岗位记录，依赖的匹配结果在同一事务中级联删除
func (m *MySQL) DeleteJob(ctx context.Context, jobID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&models.Match{}).Error; err != nil {
			return fmt.Errorf("删除岗位关联的匹配结果失败: %w", err)
		}
		result := tx.Where("job_id = ?", jobID).Delete(&models.Job{})
		if result.Error != nil {
			return fmt.Errorf("删除岗位失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return matching.ErrNotFound
		}
		return nil
	})
}

// UpsertMatch 以 (resume_id, job_id) 为唯一键写入匹配结果。
// 冲突时覆盖全部评估字段但保留原MatchID，返回落库后的结果。
func (m *MySQL) UpsertMatch(ctx context.Context, match *types.MatchResult) (*types.MatchResult, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpsertMatch",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("db.sql.table", "matches"),
	)

	row, err := matchToModel(match)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	err = m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resume_id"}, {Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"similarity_score", "skill_gaps_json", "matched_skills_json",
			"interview_questions_json", "recommendations_json",
		}),
	}).Create(row).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("写入匹配结果失败: %w", err)
	}

	// 冲突覆盖时保留首次写入的MatchID，回读以拿到实际落库的记录
	var stored models.Match
	if err := m.db.WithContext(ctx).
		Where("resume_id = ? AND job_id = ?", match.ResumeID, match.JobID).
		First(&stored).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("回读匹配结果失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return matchFromModel(&stored)
}

// GetMatch 通过ID获取匹配结果，未找到时返回 matching.ErrNotFound
func (m *MySQL) GetMatch(ctx context.Context, matchID string) (*types.MatchResult, error) {
	var row models.Match
	if err := m.db.WithContext(ctx).Where("match_id = ?", matchID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, matching.ErrNotFound
		}
		return nil, fmt.Errorf("查询匹配结果失败: %w", err)
	}
	return matchFromModel(&row)
}

// ListMatchesByResume 列出某简历的全部匹配结果，按相似度降序
func (m *MySQL) ListMatchesByResume(ctx context.Context, resumeID string) ([]*types.MatchResult, error) {
	var rows []models.Match
	if err := m.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("similarity_score DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("列出匹配结果失败: %w", err)
	}

	matches := make([]*types.MatchResult, 0, len(rows))
	for i := range rows {
		mr, err := matchFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		matches = append(matches, mr)
	}
	return matches, nil
}

func resumeToModel(resume *types.ResumeRecord) (*models.Resume, error) {
	profileJSON, err := models.MarshalToJSON(resume.Profile)
	if err != nil {
		return nil, fmt.Errorf("序列化简历技能画像失败: %w", err)
	}
	return &models.Resume{
		ResumeID:         resume.ResumeID,
		CandidateName:    resume.CandidateName,
		RawText:          resume.RawText,
		SkillProfileJSON: profileJSON,
		OriginalPathOSS:  resume.OriginalPath,
		ParsedTextPath:   resume.ParsedPath,
	}, nil
}

func resumeFromModel(row *models.Resume) (*types.ResumeRecord, error) {
	resume := &types.ResumeRecord{
		ResumeID:      row.ResumeID,
		CandidateName: row.CandidateName,
		RawText:       row.RawText,
		OriginalPath:  row.OriginalPathOSS,
		ParsedPath:    row.ParsedTextPath,
	}
	if err := models.UnmarshalFromJSON(row.SkillProfileJSON, &resume.Profile); err != nil {
		return nil, fmt.Errorf("解析简历技能画像失败: %w", err)
	}
	return resume, nil
}

func matchToModel(match *types.MatchResult) (*models.Match, error) {
	gapsJSON, err := models.MarshalToJSON(match.SkillGaps)
	if err != nil {
		return nil, fmt.Errorf("序列化技能差距失败: %w", err)
	}
	matchedJSON, err := models.MarshalToJSON(match.MatchedSkills)
	if err != nil {
		return nil, fmt.Errorf("序列化已匹配技能失败: %w", err)
	}
	questionsJSON, err := models.MarshalToJSON(match.InterviewQuestions)
	if err != nil {
		return nil, fmt.Errorf("序列化面试问题失败: %w", err)
	}
	recommendationsJSON, err := models.MarshalToJSON(match.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("序列化改进建议失败: %w", err)
	}
	return &models.Match{
		MatchID:                match.MatchID,
		ResumeID:               match.ResumeID,
		JobID:                  match.JobID,
		SimilarityScore:        match.SimilarityScore,
		SkillGapsJSON:          gapsJSON,
		MatchedSkillsJSON:      matchedJSON,
		InterviewQuestionsJSON: questionsJSON,
		RecommendationsJSON:    recommendationsJSON,
	}, nil
}

func matchFromModel(row *models.Match) (*types.MatchResult, error) {
	match := &types.MatchResult{
		MatchID:         row.MatchID,
		ResumeID:        row.ResumeID,
		JobID:           row.JobID,
		SimilarityScore: row.SimilarityScore,
	}
	if err := models.UnmarshalFromJSON(row.SkillGapsJSON, &match.SkillGaps); err != nil {
		return nil, fmt.Errorf("解析技能差距失败: %w", err)
	}
	if err := models.UnmarshalFromJSON(row.MatchedSkillsJSON, &match.MatchedSkills); err != nil {
		return nil, fmt.Errorf("解析已匹配技能失败: %w", err)
	}
	if err := models.UnmarshalFromJSON(row.InterviewQuestionsJSON, &match.InterviewQuestions); err != nil {
		return nil, fmt.Errorf("解析面试问题失败: %w", err)
	}
	if err := models.UnmarshalFromJSON(row.RecommendationsJSON, &match.Recommendations); err != nil {
		return nil, fmt.Errorf("解析改进建议失败: %w", err)
	}
	return match, nil
}
