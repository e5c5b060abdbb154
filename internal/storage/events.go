package storage

import (
	"context"
	"fmt"
	"time"

	"resume-match-go/internal/constants"
	"resume-match-go/internal/matching"
	"resume-match-go/internal/types"
)

// 确保MatchEventPublisher实现了事件发布接口
var _ matching.EventPublisher = (*MatchEventPublisher)(nil)

// MatchEventPublisher 将匹配完成事件发布到RabbitMQ。
// 投递语义为至少一次，消费方需按match_id去重。
type MatchEventPublisher struct {
	mq         *RabbitMQ
	exchange   string
	routingKey string
}

// NewMatchEventPublisher 创建匹配事件发布方并声明交换机
func NewMatchEventPublisher(mq *RabbitMQ, exchange, routingKey string) (*MatchEventPublisher, error) {
	if mq == nil {
		return nil, fmt.Errorf("RabbitMQ客户端不能为空")
	}
	if exchange == "" {
		exchange = constants.MatchEventsExchange
	}
	if routingKey == "" {
		routingKey = constants.MatchCompletedRoutingKey
	}

	if err := mq.EnsureExchange(exchange, "topic", true); err != nil {
		return nil, fmt.Errorf("声明匹配事件交换机失败: %w", err)
	}

	return &MatchEventPublisher{
		mq:         mq,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// PublishMatchCompleted 发布匹配完成事件
func (p *MatchEventPublisher) PublishMatchCompleted(ctx context.Context, match *types.MatchResult) error {
	msg := MatchCompletedMessage{
		MatchID:         match.MatchID,
		ResumeID:        match.ResumeID,
		JobID:           match.JobID,
		SimilarityScore: match.SimilarityScore,
		MatchedSkills:   match.SkillGaps.Matched,
		MissingSkills:   match.SkillGaps.Missing,
		CompletedAt:     time.Now(),
	}
	return p.mq.PublishJSON(ctx, p.exchange, p.routingKey, msg, true)
}

// ResumeEventPublisher 将简历入库完成事件发布到RabbitMQ
type ResumeEventPublisher struct {
	mq         *RabbitMQ
	exchange   string
	routingKey string
}

// NewResumeEventPublisher 创建简历事件发布方并声明交换机
func NewResumeEventPublisher(mq *RabbitMQ, exchange, routingKey string) (*ResumeEventPublisher, error) {
	if mq == nil {
		return nil, fmt.Errorf("RabbitMQ客户端不能为空")
	}
	if exchange == "" {
		exchange = constants.MatchEventsExchange
	}
	if routingKey == "" {
		routingKey = constants.ResumeIndexedRoutingKey
	}

	if err := mq.EnsureExchange(exchange, "topic", true); err != nil {
		return nil, fmt.Errorf("声明简历事件交换机失败: %w", err)
	}

	return &ResumeEventPublisher{
		mq:         mq,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// PublishResumeIndexed 发布简历入库完成事件
func (p *ResumeEventPublisher) PublishResumeIndexed(ctx context.Context, record *types.ResumeRecord) error {
	msg := ResumeIndexedMessage{
		ResumeID:      record.ResumeID,
		CandidateName: record.CandidateName,
		OriginalPath:  record.OriginalPath,
		ParsedPath:    record.ParsedPath,
		IndexedAt:     time.Now(),
	}
	return p.mq.PublishJSON(ctx, p.exchange, p.routingKey, msg, true)
}
