package handler

import (
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
)

// 依赖真实存储的摄入与删除路径在存储层的集成测试中覆盖，
// 这里只验证进入流水线前的请求校验。

func TestHandleUploadResume_BadJSON(t *testing.T) {
	h := NewResumeHandler(nil, nil, nil, nil, nil, nil)

	c := newJSONContext(`{"raw_text":`)
	h.HandleUploadResume(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestHandleUploadResume_EmptyRawText(t *testing.T) {
	h := NewResumeHandler(nil, nil, nil, nil, nil, nil)

	c := newJSONContext(`{"candidate_name":"张三","raw_text":"   "}`)
	h.HandleUploadResume(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
	assert.Contains(t, string(c.Response.Body()), "raw_text")
}

func TestHandleUploadResume_MultipartWithoutFile(t *testing.T) {
	h := NewResumeHandler(nil, nil, nil, nil, nil, nil)

	c := app.NewContext(16)
	c.Request.Header.SetContentTypeBytes([]byte("multipart/form-data; boundary=xxx"))
	h.HandleUploadResume(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
	assert.Contains(t, string(c.Response.Body()), "文件未找到")
}

func TestHandleDeleteResume_EmptyID(t *testing.T) {
	h := NewResumeHandler(nil, nil, nil, nil, nil, nil)

	c := app.NewContext(16)
	h.HandleDeleteResume(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}

func TestHandleDeleteJob_EmptyID(t *testing.T) {
	h := NewResumeHandler(nil, nil, nil, nil, nil, nil)

	c := app.NewContext(16)
	h.HandleDeleteJob(context.Background(), c)

	assert.Equal(t, consts.StatusBadRequest, c.Response.StatusCode())
}
