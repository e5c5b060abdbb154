package parser

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用LLM模型模拟器
type MockChatModel struct {
	// 模拟响应
	mockResponse string
	// 用于测试的错误
	Err error
	// 用于测试的调用次数
	CallCount int
}

// Generate 实现model.ChatModel接口
func (m *MockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return &schema.Message{
		Role:    "assistant",
		Content: m.mockResponse,
	}, nil
}

// Stream 实现model.ChatModel接口
func (m *MockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// TestLLMSkillExtractor 测试技能抽取的基本功能
func TestLLMSkillExtractor(t *testing.T) {
	mockResponse := `{
		"technical_skills": ["Go", "MySQL", "Redis"],
		"frameworks": ["Hertz", "GORM"],
		"languages": ["中文", "English"],
		"tools": ["Docker", "Kubernetes"],
		"soft_skills": ["团队协作"],
		"years_of_experience": 5,
		"current_role": "后端开发工程师",
		"education": ["计算机科学 本科"],
		"certifications": []
	}`

	extractor, err := NewLLMSkillExtractor(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	profile, err := extractor.ExtractSkills(context.Background(), "张三，5年Go后端开发经验……")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, []string{"Go", "MySQL", "Redis"}, profile.TechnicalSkills)
	assert.Equal(t, []string{"Hertz", "GORM"}, profile.Frameworks)
	assert.Equal(t, []string{"Docker", "Kubernetes"}, profile.Tools)
	assert.Equal(t, "后端开发工程师", profile.CurrentRole)
	require.NotNil(t, profile.YearsOfExperience)
	assert.Equal(t, 5.0, *profile.YearsOfExperience)
}

// TestLLMSkillExtractor_CodeFence 验证带Markdown围栏的响应也能解析
func TestLLMSkillExtractor_CodeFence(t *testing.T) {
	mockResponse := "```json\n{\"technical_skills\": [\"Python\"], \"frameworks\": [], \"languages\": [], \"tools\": [], \"soft_skills\": [], \"education\": [], \"certifications\": []}\n```"

	extractor, err := NewLLMSkillExtractor(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	profile, err := extractor.ExtractSkills(context.Background(), "Python工程师")
	require.NoError(t, err)
	assert.Equal(t, []string{"Python"}, profile.TechnicalSkills)
}

// TestLLMSkillExtractor_BOMPrefix 验证带UTF-8 BOM前缀的响应也能解析
func TestLLMSkillExtractor_BOMPrefix(t *testing.T) {
	mockResponse := "\uFEFF{\"technical_skills\": [\"Rust\"], \"frameworks\": [], \"languages\": [], \"tools\": [], \"soft_skills\": [], \"education\": [], \"certifications\": []}"

	extractor, err := NewLLMSkillExtractor(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	profile, err := extractor.ExtractSkills(context.Background(), "Rust工程师")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, profile.TechnicalSkills)
}

// TestLLMSkillExtractor_MalformedJSONFallsBackToEmptyProfile 验证JSON不可解析时返回空画像而非错误
func TestLLMSkillExtractor_MalformedJSONFallsBackToEmptyProfile(t *testing.T) {
	extractor, err := NewLLMSkillExtractor(&MockChatModel{mockResponse: "抱歉，我无法处理这份文本。"})
	require.NoError(t, err)

	profile, err := extractor.ExtractSkills(context.Background(), "一段无法分析的文本")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Empty(t, profile.TechnicalSkills)
	assert.Empty(t, profile.Frameworks)
}

// TestLLMSkillExtractor_LLMFailureIsAnError 验证LLM调用失败向上返回错误
func TestLLMSkillExtractor_LLMFailureIsAnError(t *testing.T) {
	extractor, err := NewLLMSkillExtractor(&MockChatModel{Err: assert.AnError})
	require.NoError(t, err)

	_, err = extractor.ExtractSkills(context.Background(), "一段文本")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "技能抽取LLM调用失败")
}

// TestLLMSkillExtractor_EmptyInput 空输入直接返回空画像，不调用LLM
func TestLLMSkillExtractor_EmptyInput(t *testing.T) {
	mock := &MockChatModel{mockResponse: "{}"}
	extractor, err := NewLLMSkillExtractor(mock)
	require.NoError(t, err)

	profile, err := extractor.ExtractSkills(context.Background(), "   ")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 0, mock.CallCount)
}

func TestNewLLMSkillExtractor_RequiresModel(t *testing.T) {
	_, err := NewLLMSkillExtractor(nil)
	require.Error(t, err)
}
