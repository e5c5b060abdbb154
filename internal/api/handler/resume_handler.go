package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/matching"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// PDFTextExtractor PDF文本提取的消费方接口
type PDFTextExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// ResumeEventPublisher 简历入库事件的发布方，发布失败只记日志
type ResumeEventPublisher interface {
	PublishResumeIndexed(ctx context.Context, record *types.ResumeRecord) error
}

// ResumeHandler 简历处理器，负责简历的摄入与删除
type ResumeHandler struct {
	cfg            *config.Config
	storage        *storage.Storage
	pdfExtractor   PDFTextExtractor
	skillExtractor matching.SkillExtractor
	embedder       matching.TextEmbedder
	index          matching.VectorIndex
	events         ResumeEventPublisher
}

// SetEventPublisher 设置简历入库事件发布方，nil表示不发布
func (h *ResumeHandler) SetEventPublisher(events ResumeEventPublisher) {
	h.events = events
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(
	cfg *config.Config,
	st *storage.Storage,
	pdfExtractor PDFTextExtractor,
	skillExtractor matching.SkillExtractor,
	embedder matching.TextEmbedder,
	index matching.VectorIndex,
) *ResumeHandler {
	return &ResumeHandler{
		cfg:            cfg,
		storage:        st,
		pdfExtractor:   pdfExtractor,
		skillExtractor: skillExtractor,
		embedder:       embedder,
		index:          index,
	}
}

// ResumeUploadResponse 简历摄入响应
type ResumeUploadResponse struct {
	ResumeID      string             `json:"resume_id"`
	CandidateName string             `json:"candidate_name,omitempty"`
	Profile       types.SkillProfile `json:"profile"`
	Status        string             `json:"status"`
}

// resumeTextRequest JSON形式的简历摄入请求体
type resumeTextRequest struct {
	CandidateName string `json:"candidate_name"`
	RawText       string `json:"raw_text"`
}

// HandleUploadResume 处理简历摄入请求。
// POST /api/v1/resumes
// 两种形式：multipart上传PDF文件（字段名 file，可选 candidate_name），
// 或JSON请求体 {candidate_name, raw_text}。
func (h *ResumeHandler) HandleUploadResume(ctx context.Context, c *app.RequestContext) {
	contentType := string(c.ContentType())

	var (
		candidateName string
		rawText       string
		fileHeader    *multipart.FileHeader
	)

	if strings.HasPrefix(contentType, "multipart/form-data") {
		var err error
		fileHeader, err = c.FormFile("file")
		if err != nil {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "文件未找到"})
			return
		}
		candidateName = c.PostForm("candidate_name")
	} else {
		var req resumeTextRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败: " + err.Error()})
			return
		}
		if strings.TrimSpace(req.RawText) == "" {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "raw_text 不能为空"})
			return
		}
		candidateName = req.CandidateName
		rawText = req.RawText
	}

	resumeID := uuid.NewString()
	var originalPath string

	// PDF路径：先存原始文件，再提取文本
	if fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "打开上传文件失败"})
			return
		}
		fileBytes, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "读取上传文件失败"})
			return
		}

		ext := strings.TrimPrefix(filepath.Ext(fileHeader.Filename), ".")
		if ext == "" {
			ext = "pdf"
		}

		if h.storage.MinIO != nil {
			originalPath, err = h.storage.MinIO.UploadOriginalFile(ctx, resumeID, ext,
				bytes.NewReader(fileBytes), int64(len(fileBytes)), "application/pdf")
			if err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("上传原始简历到MinIO失败")
				c.JSON(consts.StatusInternalServerError, map[string]string{"error": "存储简历文件失败"})
				return
			}
		}

		rawText, err = h.pdfExtractor.ExtractTextFromBytes(ctx, fileBytes, fileHeader.Filename)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("PDF文本提取失败")
			c.JSON(consts.StatusUnprocessableEntity, map[string]string{"error": "PDF文本提取失败: " + err.Error()})
			return
		}
		if strings.TrimSpace(rawText) == "" {
			c.JSON(consts.StatusUnprocessableEntity, map[string]string{"error": "PDF中未提取到文本"})
			return
		}
	}

	resp, err := h.ingestResume(ctx, resumeID, candidateName, rawText, originalPath)
	if err != nil {
		status := matching.HTTPStatus(err)
		logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("简历摄入失败")
		c.JSON(status, map[string]string{"error": err.Error()})
		return
	}

	c.JSON(consts.StatusOK, resp)
}

// ingestResume 执行摄入流程：技能抽取 → 归一化 → 落库 → 向量索引 → 解析文本归档
func (h *ResumeHandler) ingestResume(ctx context.Context, resumeID, candidateName, rawText, originalPath string) (*ResumeUploadResponse, error) {
	profile, err := h.skillExtractor.ExtractSkills(ctx, rawText)
	if err != nil {
		return nil, matching.NewExtractionError("extract_resume_skills", err.Error())
	}
	normalized := matching.NormalizeProfile(profile)

	if candidateName == "" {
		candidateName = normalized.CurrentRole
	}

	record := &types.ResumeRecord{
		ResumeID:      resumeID,
		CandidateName: candidateName,
		RawText:       rawText,
		Profile:       normalized,
		OriginalPath:  originalPath,
	}

	// 解析文本归档（best effort，失败不阻塞摄入）
	if h.storage.MinIO != nil {
		parsedPath, err := h.storage.MinIO.UploadParsedText(ctx, resumeID, rawText)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("resume_id", resumeID).Msg("归档解析文本失败")
		} else {
			record.ParsedPath = parsedPath
		}
	}

	if err := h.storage.MySQL.SaveResume(ctx, record); err != nil {
		return nil, matching.NewRecordStoreError("save_resume", err.Error())
	}

	// 向量化并写入索引
	embedText := matching.TruncateRunes(rawText, h.embedCharCap())
	vectors, err := h.embedder.EmbedStrings(ctx, []string{embedText})
	if err != nil {
		return nil, matching.NewEmbeddingError("embed_resume", err.Error())
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, matching.NewEmbeddingError("embed_resume", "向量化服务返回空结果")
	}

	vectorRecord := &types.VectorRecord{
		VectorID:  types.VectorKindResume + "_" + resumeID,
		Kind:      types.VectorKindResume,
		OwnerID:   resumeID,
		Embedding: vectors[0],
		Skills:    matching.CombinedSkillList(&normalized),
		Title:     normalized.CurrentRole,
	}
	if err := h.index.UpsertRecord(ctx, vectorRecord); err != nil {
		return nil, matching.NewVectorIndexError("index_resume_vector", err.Error())
	}

	if h.events != nil {
		if err := h.events.PublishResumeIndexed(ctx, record); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("resume_id", resumeID).Msg("发布简历入库事件失败")
		}
	}

	logger.Ctx(ctx).Info().
		Str("resume_id", resumeID).
		Int("skills", len(vectorRecord.Skills)).
		Msg("简历摄入完成")

	return &ResumeUploadResponse{
		ResumeID:      resumeID,
		CandidateName: candidateName,
		Profile:       normalized,
		Status:        "INDEXED",
	}, nil
}

func (h *ResumeHandler) embedCharCap() int {
	if h.cfg != nil && h.cfg.Matching.EmbedCharCap > 0 {
		return h.cfg.Matching.EmbedCharCap
	}
	return matching.DefaultEmbedCharCap
}

// HandleDeleteResume 删除简历及其关联数据。
// DELETE /api/v1/resumes/:resume_id
// 匹配记录在存储层的同一事务中级联删除；向量与对象存储的清理是尽力而为。
func (h *ResumeHandler) HandleDeleteResume(ctx context.Context, c *app.RequestContext) {
	resumeID := c.Param("resume_id")
	if resumeID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "resume_id 不能为空"})
		return
	}

	if err := h.storage.MySQL.DeleteResume(ctx, resumeID); err != nil {
		if errors.Is(err, matching.ErrNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "简历不存在: " + resumeID})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("删除简历记录失败")
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除简历失败"})
		return
	}

	if err := h.index.DeleteRecord(ctx, types.VectorKindResume, resumeID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("resume_id", resumeID).Msg("删除简历向量失败")
	}

	if h.storage.MinIO != nil {
		if err := h.storage.MinIO.RemoveResumeObjects(ctx, resumeID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("resume_id", resumeID).Msg("删除简历对象失败")
		}
	}

	c.JSON(consts.StatusOK, map[string]string{
		"resume_id": resumeID,
		"status":    "DELETED",
	})
}

// HandleDeleteJob 删除岗位及其关联数据。
// DELETE /api/v1/jobs/:job_id
func (h *ResumeHandler) HandleDeleteJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	if err := h.storage.MySQL.DeleteJob(ctx, jobID); err != nil {
		if errors.Is(err, matching.ErrNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "岗位不存在: " + jobID})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("删除岗位记录失败")
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除岗位失败"})
		return
	}

	if err := h.index.DeleteRecord(ctx, types.VectorKindJob, jobID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("删除岗位向量失败")
	}

	if h.storage.Redis != nil {
		if err := h.storage.Redis.DeleteJobVector(ctx, jobID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("清理岗位向量缓存失败")
		}
	}

	c.JSON(consts.StatusOK, map[string]string{
		"job_id": jobID,
		"status": "DELETED",
	})
}

// HandleGetResume 按ID查询简历（不含原始文件内容）。
// GET /api/v1/resumes/:resume_id
func (h *ResumeHandler) HandleGetResume(ctx context.Context, c *app.RequestContext) {
	resumeID := c.Param("resume_id")
	if resumeID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "resume_id 不能为空"})
		return
	}

	record, err := h.storage.MySQL.GetResume(ctx, resumeID)
	if err != nil {
		if errors.Is(err, matching.ErrNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "简历不存在: " + resumeID})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("resume_id", resumeID).Msg("查询简历失败")
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询简历失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]interface{}{
		"resume_id":      record.ResumeID,
		"candidate_name": record.CandidateName,
		"profile":        record.Profile,
		"text_length":    len(record.RawText),
	})
}
