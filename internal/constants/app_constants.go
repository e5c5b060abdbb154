package constants

// 应用级常量
const (
	// ServiceName 服务名，用于日志与链路追踪标识
	ServiceName = "resume-match-go"

	// DefaultJobVectorCacheTTLHours 岗位向量缓存的默认过期时间（小时）
	DefaultJobVectorCacheTTLHours = 24

	// MatchEventsExchange 匹配事件交换机
	MatchEventsExchange = "matching.events"
	// MatchCompletedRoutingKey 匹配完成事件的路由键
	MatchCompletedRoutingKey = "match.completed"
	// ResumeIndexedRoutingKey 简历入库完成事件的路由键
	ResumeIndexedRoutingKey = "resume.indexed"
)
