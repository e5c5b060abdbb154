package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"resume-match-go/internal/matching"
	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 确保LLMSkillExtractor实现了技能抽取接口
var _ matching.SkillExtractor = (*LLMSkillExtractor)(nil)

// LLMSkillExtractor 通过LLM从简历或岗位文本中抽取结构化技能画像
type LLMSkillExtractor struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// LLMSkillExtractorOption 技能抽取器的配置选项
type LLMSkillExtractorOption func(*LLMSkillExtractor)

// WithExtractorPromptTemplate 设置自定义提示词模板
func WithExtractorPromptTemplate(template string) LLMSkillExtractorOption {
	return func(e *LLMSkillExtractor) {
		if template != "" {
			e.promptTemplate = template
		}
	}
}

// WithExtractorLogger 设置日志记录器
func WithExtractorLogger(logger *log.Logger) LLMSkillExtractorOption {
	return func(e *LLMSkillExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewLLMSkillExtractor 创建技能抽取器实例
func NewLLMSkillExtractor(llmModel model.ToolCallingChatModel, options ...LLMSkillExtractorOption) (*LLMSkillExtractor, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}

	extractor := &LLMSkillExtractor{
		llmModel:       llmModel,
		promptTemplate: defaultExtractionPromptTemplate,
		logger:         log.New(io.Discard, "", 0),
	}

	for _, opt := range options {
		opt(extractor)
	}

	return extractor, nil
}

const defaultExtractionPromptTemplate = `你是一位资深的技术招聘分析师。请从下面提供的文本（可能是候选人简历，也可能是岗位描述）中抽取结构化的技能画像，并严格按照指定的JSON格式输出。

**请严格遵循以下JSON输出格式规范：**
{
  "technical_skills": ["编程语言、数据库、核心技术等"],
  "frameworks": ["框架和库"],
  "languages": ["自然语言，例如 中文、English"],
  "tools": ["开发工具、平台、中间件"],
  "soft_skills": ["软技能"],
  "years_of_experience": 数字或null,
  "current_role": "当前或目标职位，没有则为空字符串",
  "education": ["学历信息"],
  "certifications": ["证书"]
}

**格式细节要求：**
- 完整输出必须是一个合法的JSON对象，所有字段名和字符串值都必须使用双引号。
- 文本中未提及的字段输出空数组或null，禁止编造。
- 技能名称保持原文写法，不要翻译或改写。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

【待分析文本】:
"""
%s
"""

请基于以上指令，仔细分析并输出JSON结果。`

// ExtractSkills 从文本中抽取技能画像, 实现 matching.SkillExtractor 接口。
// LLM调用失败视为外部服务故障返回错误；LLM返回了内容但JSON不可解析时，
// 记录日志并返回空画像，由上层按"无技能"继续处理。
func (e *LLMSkillExtractor) ExtractSkills(ctx context.Context, text string) (*types.SkillProfile, error) {
	if strings.TrimSpace(text) == "" {
		return &types.SkillProfile{}, nil
	}

	systemMsg := einoschema.SystemMessage("你是一位专注于技术人才画像分析的AI助手。")
	userMsg := einoschema.UserMessage(fmt.Sprintf(e.promptTemplate, text))

	response, err := e.llmModel.Generate(ctx, []*einoschema.Message{systemMsg, userMsg})
	if err != nil {
		return nil, fmt.Errorf("技能抽取LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("技能抽取LLM返回空响应")
	}

	// 去掉BOM与Markdown围栏后按花括号层级截取JSON
	content := strings.TrimPrefix(response.Content, "\uFEFF")
	jsonStr := extractJSONObject(stripCodeFence(content))
	if jsonStr == "" {
		e.logger.Printf("技能抽取响应中未找到JSON对象, 返回空画像。响应前200字符: %.200s", content)
		return &types.SkillProfile{}, nil
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var profile types.SkillProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		// 解析失败先尝试自动修复引号再试一次
		if jsonErr := json.Unmarshal([]byte(sanitizeJSON(jsonStr)), &profile); jsonErr != nil {
			e.logger.Printf("技能抽取JSON解析失败, 返回空画像: %v", err)
			return &types.SkillProfile{}, nil
		}
	}

	return &profile, nil
}
