package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	appLogger "resume-match-go/internal/logger"
	"resume-match-go/internal/matching"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	hzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
)

func main() {
	// .env仅用于本地开发，缺失时静默忽略
	_ = godotenv.Load()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪（配置了OTLP端点才上报）
	var shutdownTracer func(context.Context) error
	if cfg.Tracing.OTLPEndpoint != "" {
		shutdownTracer, err = tracing.InitTracerProvider(ctx, constants.ServiceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			glog.Fatalf("初始化链路追踪失败: %v", err)
		}
		glog.Info("链路追踪初始化成功")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 向量化客户端
	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		glog.Fatalf("初始化向量化客户端失败: %v", err)
	}
	glog.Info("向量化客户端初始化成功")

	// 技能抽取与列表生成各自的LLM客户端，按模型QPM限流
	extractorModel, err := buildChatModel(cfg, cfg.SkillExtractor.ModelName, "skill_extraction",
		cfg.SkillExtractor.Temperature, cfg.SkillExtractor.MaxTokens, cfg.SkillExtractor.QPM)
	if err != nil {
		glog.Fatalf("初始化技能抽取模型失败: %v", err)
	}
	generatorModel, err := buildChatModel(cfg, cfg.Generator.ModelName, "generation",
		cfg.Generator.Temperature, cfg.Generator.MaxTokens, cfg.Generator.QPM)
	if err != nil {
		glog.Fatalf("初始化列表生成模型失败: %v", err)
	}

	var extractorLogger, generatorLogger *log.Logger
	if cfg.Logger.Level == "debug" {
		extractorLogger = log.New(os.Stderr, "[SkillExtractor] ", log.LstdFlags|log.Lshortfile)
		generatorLogger = log.New(os.Stderr, "[ListGenerator] ", log.LstdFlags|log.Lshortfile)
	} else {
		extractorLogger = log.New(io.Discard, "", 0)
		generatorLogger = log.New(io.Discard, "", 0)
	}

	skillExtractor, err := parser.NewLLMSkillExtractor(extractorModel, parser.WithExtractorLogger(extractorLogger))
	if err != nil {
		glog.Fatalf("初始化技能抽取器失败: %v", err)
	}
	listGenerator, err := parser.NewLLMListGenerator(generatorModel, parser.WithGeneratorLogger(generatorLogger))
	if err != nil {
		glog.Fatalf("初始化列表生成器失败: %v", err)
	}

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx,
		parser.WithEinoLogger(log.New(os.Stderr, "[EinoPDF] ", log.LstdFlags)))
	if err != nil {
		glog.Fatalf("初始化PDF解析器失败: %v", err)
	}
	glog.Info("解析组件初始化成功")

	// 匹配编排器
	orchestratorOpts := []matching.OrchestratorOption{
		matching.WithOrchestratorLogger(log.New(appLogger.Logger, "[Orchestrator] ", log.LstdFlags)),
	}
	if cfg.Matching.SimilarityTopK > 0 {
		orchestratorOpts = append(orchestratorOpts, matching.WithSimilarityTopK(cfg.Matching.SimilarityTopK))
	}
	if cfg.Matching.EmbedCharCap > 0 {
		orchestratorOpts = append(orchestratorOpts, matching.WithEmbedCharCap(cfg.Matching.EmbedCharCap))
	}
	if storageManager.Redis != nil {
		orchestratorOpts = append(orchestratorOpts, matching.WithEmbeddingCache(storageManager.Redis))
	}
	if storageManager.RabbitMQ != nil {
		publisher, err := storage.NewMatchEventPublisher(storageManager.RabbitMQ,
			cfg.RabbitMQ.EventsExchange, cfg.RabbitMQ.MatchCompletedRoutingKey)
		if err != nil {
			glog.Warnf("初始化匹配事件发布器失败: %v", err)
		} else {
			orchestratorOpts = append(orchestratorOpts, matching.WithEventPublisher(publisher))
		}
	}

	orchestrator, err := matching.NewOrchestrator(
		storageManager.MySQL,
		storageManager.Index,
		skillExtractor,
		embedder,
		listGenerator,
		orchestratorOpts...,
	)
	if err != nil {
		glog.Fatalf("初始化匹配编排器失败: %v", err)
	}

	finderOpts := []matching.FinderOption{
		matching.WithFinderLogger(log.New(appLogger.Logger, "[CandidateFinder] ", log.LstdFlags)),
	}
	if cfg.Matching.EmbedCharCap > 0 {
		finderOpts = append(finderOpts, matching.WithFinderEmbedCharCap(cfg.Matching.EmbedCharCap))
	}
	candidateFinder, err := matching.NewCandidateFinder(
		storageManager.MySQL,
		storageManager.Index,
		embedder,
		finderOpts...,
	)
	if err != nil {
		glog.Fatalf("初始化候选人检索器失败: %v", err)
	}
	glog.Info("匹配流水线初始化成功")

	matchHandler := handler.NewMatchHandler(orchestrator, candidateFinder, storageManager.MySQL)
	resumeHandler := handler.NewResumeHandler(cfg, storageManager, pdfExtractor, skillExtractor, embedder, storageManager.Index)
	if storageManager.RabbitMQ != nil {
		resumePublisher, err := storage.NewResumeEventPublisher(storageManager.RabbitMQ,
			cfg.RabbitMQ.EventsExchange, cfg.RabbitMQ.ResumeIndexedRoutingKey)
		if err != nil {
			glog.Warnf("初始化简历事件发布器失败: %v", err)
		} else {
			resumeHandler.SetEventPublisher(resumePublisher)
		}
	}

	// HTTP服务器
	serverOpts := []hzconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	}
	var tracerCfg *hertztracing.Config
	if cfg.Tracing.OTLPEndpoint != "" {
		var tracer hzconfig.Option
		tracer, tracerCfg = hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracer)
	}
	h := server.New(serverOpts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}

	router.RegisterRoutes(h, matchHandler, resumeHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			glog.Errorf("链路追踪关闭失败: %v", err)
		}
	}
	glog.Info("优雅退出完成")
}

// buildChatModel 创建一个按QPM限流的聊天模型客户端。
// 模型名优先取任务自己的配置，其次是任务专用模型映射，最后是全局默认模型。
func buildChatModel(cfg *config.Config, modelName, taskName string, temperature float64, maxTokens, qpm int) (model.ToolCallingChatModel, error) {
	if modelName == "" {
		modelName = cfg.GetModelForTask(taskName)
	}

	var chatOpts []parser.AliyunChatModelOption
	if temperature > 0 {
		chatOpts = append(chatOpts, parser.WithChatTemperature(temperature))
	}
	if maxTokens > 0 {
		chatOpts = append(chatOpts, parser.WithChatMaxTokens(maxTokens))
	}

	chatModel, err := parser.NewAliyunChatModel(cfg.Aliyun.APIKey, modelName, cfg.Aliyun.APIURL, chatOpts...)
	if err != nil {
		return nil, err
	}

	return ratelimit.NewChatModelWithQPMLimit(chatModel, modelName, cfg.ModelQPMLimits, qpm, 3, time.Second), nil
}

func initLogger(cfg *config.Config) {
	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	appLogger.Logger = appLogger.Logger.With().
		Str("app", constants.ServiceName).
		Logger()

	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	} else {
		glog.SetLevel(glog.LevelInfo)
	}
}
