package matching

import (
	"errors"
	"fmt"
	"net/http"
)

// 定义基础错误类型，按错误性质映射HTTP语义：
// 校验失败→400，记录不存在→404，外部服务不可用→503（按失败的服务区分），其余→500。
var (
	ErrValidation        = errors.New("请求参数校验失败")
	ErrNotFound          = errors.New("记录不存在")
	ErrExtractionFailed  = errors.New("技能抽取服务调用失败")
	ErrEmbeddingFailed   = errors.New("向量化服务调用失败")
	ErrVectorIndexFailed = errors.New("向量索引操作失败")
	ErrRecordStoreFailed = errors.New("记录存储操作失败")
	ErrInternal          = errors.New("内部错误")
)

// MatchError 包含操作位置与细节的匹配流水线错误。
type MatchError struct {
	Op      string // 出错的流水线步骤，如 "lookup_resume"
	BaseErr error
	Detail  string
}

func (e *MatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s): %s", e.BaseErr, e.Op, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s)", e.BaseErr, e.Op)
}

func (e *MatchError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *MatchError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewValidationError(detail string) error {
	return &MatchError{Op: "validate_input", BaseErr: ErrValidation, Detail: detail}
}

func NewNotFoundError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrNotFound, Detail: detail}
}

func NewExtractionError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrExtractionFailed, Detail: detail}
}

func NewEmbeddingError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrEmbeddingFailed, Detail: detail}
}

func NewVectorIndexError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrVectorIndexFailed, Detail: detail}
}

func NewRecordStoreError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrRecordStoreFailed, Detail: detail}
}

func NewInternalError(op, detail string) error {
	return &MatchError{Op: op, BaseErr: ErrInternal, Detail: detail}
}

// HTTPStatus 将匹配流水线错误映射为HTTP状态码。
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExtractionFailed),
		errors.Is(err, ErrEmbeddingFailed),
		errors.Is(err, ErrVectorIndexFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
