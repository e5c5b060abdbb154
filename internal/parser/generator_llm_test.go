package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLLMListGenerator 测试列表生成的基本功能
func TestLLMListGenerator(t *testing.T) {
	mockResponse := `["请介绍一下你在Go项目中的并发实践。", "你如何设计MySQL的索引？", "谈谈你对Redis缓存穿透的理解。"]`

	generator, err := NewLLMListGenerator(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	items, err := generator.GenerateList(context.Background(), "请生成面试问题", 7)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "请介绍一下你在Go项目中的并发实践。", items[0])
}

// TestLLMListGenerator_CodeFenceAndTruncation 验证围栏剥离与maxItems截断
func TestLLMListGenerator_CodeFenceAndTruncation(t *testing.T) {
	mockResponse := "```json\n[\"问题1\", \"问题2\", \"问题3\", \"问题4\"]\n```"

	generator, err := NewLLMListGenerator(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	items, err := generator.GenerateList(context.Background(), "请生成面试问题", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"问题1", "问题2"}, items)
}

// TestLLMListGenerator_BOMPrefix 验证带UTF-8 BOM前缀的响应也能解析
func TestLLMListGenerator_BOMPrefix(t *testing.T) {
	mockResponse := "\uFEFF[\"建议一\", \"建议二\"]"

	generator, err := NewLLMListGenerator(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	items, err := generator.GenerateList(context.Background(), "请生成改进建议", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"建议一", "建议二"}, items)
}

// TestLLMListGenerator_FiltersBlankItems 验证空白项被过滤
func TestLLMListGenerator_FiltersBlankItems(t *testing.T) {
	mockResponse := `["有效建议", "", "   ", "另一条建议"]`

	generator, err := NewLLMListGenerator(&MockChatModel{mockResponse: mockResponse})
	require.NoError(t, err)

	items, err := generator.GenerateList(context.Background(), "请生成改进建议", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"有效建议", "另一条建议"}, items)
}

// TestLLMListGenerator_NonArrayOutputIsAnError 输出不是JSON数组时返回错误
func TestLLMListGenerator_NonArrayOutputIsAnError(t *testing.T) {
	generator, err := NewLLMListGenerator(&MockChatModel{mockResponse: "这里没有任何列表。"})
	require.NoError(t, err)

	_, err = generator.GenerateList(context.Background(), "请生成面试问题", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未找到JSON数组")
}

// TestLLMListGenerator_LLMFailureIsAnError LLM调用失败向上返回错误
func TestLLMListGenerator_LLMFailureIsAnError(t *testing.T) {
	generator, err := NewLLMListGenerator(&MockChatModel{Err: assert.AnError})
	require.NoError(t, err)

	_, err = generator.GenerateList(context.Background(), "请生成面试问题", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "列表生成LLM调用失败")
}

// TestExtractJSONHelpers 验证JSON截取辅助函数
func TestExtractJSONHelpers(t *testing.T) {
	t.Run("对象截取忽略字符串内的花括号", func(t *testing.T) {
		text := `前缀 {"a": "包含 { 和 } 的值", "b": 1} 后缀`
		assert.Equal(t, `{"a": "包含 { 和 } 的值", "b": 1}`, extractJSONObject(text))
	})

	t.Run("数组截取", func(t *testing.T) {
		text := "输出如下：\n[\"x\", \"y\"]\n完毕"
		assert.Equal(t, `["x", "y"]`, extractJSONArray(text))
	})

	t.Run("未配平时返回空串", func(t *testing.T) {
		assert.Equal(t, "", extractJSONObject(`{"a": 1`))
	})

	t.Run("sanitizeJSON修复字符串内部未转义引号", func(t *testing.T) {
		broken := `{"summary": "他说"你好"然后离开", "score": 1}`
		fixed := sanitizeJSON(broken)
		assert.Contains(t, fixed, `\"你好\"`)
	})
}
