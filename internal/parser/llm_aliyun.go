package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	// DashScope的OpenAI兼容聊天端点
	defaultQwenChatAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName  = "qwen-plus"
)

var _ model.ToolCallingChatModel = (*AliyunChatModel)(nil)

// AliyunChatModel 通过OpenAI兼容API与阿里云通义千问模型交互，
// 实现 model.ToolCallingChatModel 接口。本服务只使用纯文本生成，
// 不绑定工具。
type AliyunChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// AliyunChatModelOption 配置AliyunChatModel
type AliyunChatModelOption func(*AliyunChatModel)

// WithChatTemperature 设置采样温度
func WithChatTemperature(temperature float64) AliyunChatModelOption {
	return func(m *AliyunChatModel) {
		if temperature > 0 {
			m.temperature = temperature
		}
	}
}

// WithChatMaxTokens 设置生成的最大token数
func WithChatMaxTokens(maxTokens int) AliyunChatModelOption {
	return func(m *AliyunChatModel) {
		if maxTokens > 0 {
			m.maxTokens = maxTokens
		}
	}
}

// WithChatHTTPTimeout 设置HTTP请求超时
func WithChatHTTPTimeout(timeout time.Duration) AliyunChatModelOption {
	return func(m *AliyunChatModel) {
		if timeout > 0 {
			m.httpClient.Timeout = timeout
		}
	}
}

// NewAliyunChatModel 创建一个新的通义千问聊天模型客户端
func NewAliyunChatModel(apiKey, modelName, apiURL string, opts ...AliyunChatModelOption) (*AliyunChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultQwenChatAPIURL
	}

	chatModel := &AliyunChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(chatModel)
	}

	return chatModel, nil
}

// --- OpenAI兼容请求/响应结构 ---

type qwenChatRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"` // eino的schema.Message与OpenAI的role/content兼容
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type qwenChatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type qwenChatChoice struct {
	Index        int             `json:"index"`
	Message      qwenChatMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type qwenChatResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []qwenChatChoice `json:"choices"`
}

// Generate 实现 model.ChatModel 接口
func (m *AliyunChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	reqPayload := qwenChatRequest{
		Model:       m.modelName,
		Messages:    messages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API请求失败, 状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var chatResp qwenChatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("API返回空选项: %s", string(bodyBytes))
	}

	apiMessage := chatResp.Choices[0].Message
	content := ""
	if apiMessage.Content != nil {
		content = *apiMessage.Content
	}

	role := schema.RoleType(apiMessage.Role)
	if role == "" {
		role = schema.RoleType("assistant")
	}

	return &schema.Message{
		Role:    role,
		Content: content,
	}, nil
}

// Stream 实现 model.ChatModel 接口。本服务不使用流式输出。
func (m *AliyunChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("AliyunChatModel 的 Stream 方法未实现")
}

// WithTools 实现 model.ToolCallingChatModel 接口。
// 本服务的提示词不依赖工具调用，直接返回自身。
func (m *AliyunChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}
