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

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 确保LLMListGenerator实现了列表生成接口
var _ matching.ListGenerator = (*LLMListGenerator)(nil)

// LLMListGenerator 通过LLM生成字符串列表（面试问题、改进建议等）。
// 输出不是合法的JSON字符串数组时返回错误，回退策略由调用方决定。
type LLMListGenerator struct {
	llmModel model.ToolCallingChatModel
	logger   *log.Logger
}

// LLMListGeneratorOption 列表生成器的配置选项
type LLMListGeneratorOption func(*LLMListGenerator)

// WithGeneratorLogger 设置日志记录器
func WithGeneratorLogger(logger *log.Logger) LLMListGeneratorOption {
	return func(g *LLMListGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewLLMListGenerator 创建列表生成器实例
func NewLLMListGenerator(llmModel model.ToolCallingChatModel, options ...LLMListGeneratorOption) (*LLMListGenerator, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}

	generator := &LLMListGenerator{
		llmModel: llmModel,
		logger:   log.New(io.Discard, "", 0),
	}

	for _, opt := range options {
		opt(generator)
	}

	return generator, nil
}

// GenerateList 根据提示词生成字符串列表, 实现 matching.ListGenerator 接口
func (g *LLMListGenerator) GenerateList(ctx context.Context, prompt string, maxItems int) ([]string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("提示词不能为空")
	}

	systemMsg := einoschema.SystemMessage("你是一位资深的AI招聘助手。你的回答必须是一个合法的JSON字符串数组，禁止输出任何额外文本。")
	userMsg := einoschema.UserMessage(prompt)

	response, err := g.llmModel.Generate(ctx, []*einoschema.Message{systemMsg, userMsg})
	if err != nil {
		return nil, fmt.Errorf("列表生成LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("列表生成LLM返回空响应")
	}

	content := strings.TrimPrefix(response.Content, "\uFEFF")
	jsonStr := extractJSONArray(stripCodeFence(content))
	if jsonStr == "" {
		return nil, fmt.Errorf("列表生成响应中未找到JSON数组")
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var items []string
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		if jsonErr := json.Unmarshal([]byte(sanitizeJSON(jsonStr)), &items); jsonErr != nil {
			return nil, fmt.Errorf("列表生成JSON解析失败: %w", err)
		}
	}

	// 过滤空白项
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if maxItems > 0 && len(cleaned) > maxItems {
		g.logger.Printf("列表生成返回 %d 项, 截断到 %d 项", len(cleaned), maxItems)
		cleaned = cleaned[:maxItems]
	}

	return cleaned, nil
}
