package router

import (
	"context"

	"resume-match-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由。
// apiKey 非空时对 /api/v1 下的路由启用 Bearer 鉴权，健康检查始终放行。
func RegisterRoutes(h *server.Hertz, matchHandler *handler.MatchHandler, resumeHandler *handler.ResumeHandler, apiKey string) {
	api := h.Group("/api/v1")

	// 健康检查在鉴权中间件之前注册，始终放行
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
			keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
				ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "鉴权失败"})
				ctx.Abort()
			}),
		))
	}

	// 简历：摄入、查询、删除
	api.POST("/resumes", resumeHandler.HandleUploadResume)
	api.GET("/resumes/:resume_id", resumeHandler.HandleGetResume)
	api.DELETE("/resumes/:resume_id", resumeHandler.HandleDeleteResume)

	// 匹配：打分、查询
	api.POST("/matches", matchHandler.HandleCreateMatch)
	api.GET("/matches/:match_id", matchHandler.HandleGetMatch)
	api.GET("/resumes/:resume_id/matches", matchHandler.HandleListResumeMatches)

	// 岗位：候选人搜索、删除
	api.POST("/jobs/search-candidates", matchHandler.HandleSearchCandidates)
	api.DELETE("/jobs/:job_id", resumeHandler.HandleDeleteJob)
}
