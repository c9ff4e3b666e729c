package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/xianai/xianworker/internal/logger"
	"github.com/xianai/xianworker/pkg/capture"
	"github.com/xianai/xianworker/pkg/config"
	"github.com/xianai/xianworker/pkg/ocr"
	"github.com/xianai/xianworker/pkg/overlay"
	"github.com/xianai/xianworker/pkg/permissions"
	"github.com/xianai/xianworker/pkg/translate"
	"github.com/xianai/xianworker/pkg/worker"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 命令行参数
	var (
		ollamaURL   = flag.String("ollama", "", "Ollama 服务地址 (例: http://localhost:11434)")
		model       = flag.String("model", "", "翻译模型名")
		sourceLang  = flag.String("source", "", "源语言 (auto 表示自动检测)")
		targetLang  = flag.String("target", "", "目标语言")
		interval    = flag.Int("interval", 0, "翻译周期间隔 (毫秒)")
		logLevel    = flag.String("log-level", "", "日志级别 (DEBUG/INFO/WARN/ERROR)")
		logFile     = flag.String("log-file", "", "日志文件路径")
		snapshotDir = flag.String("snapshot-dir", "", "调试快照输出目录, 为空时关闭")
		listModels  = flag.Bool("list-models", false, "列出可用模型后退出")
		saveConfig  = flag.Bool("save", false, "保存配置到本地")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printHelp()
		return
	}

	// 加载配置
	manager := config.NewManager()
	cfg, err := manager.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	if *ollamaURL != "" {
		cfg.OllamaURL = *ollamaURL
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *sourceLang != "" {
		cfg.SourceLang = *sourceLang
	}
	if *targetLang != "" {
		cfg.TargetLang = *targetLang
	}
	if *interval > 0 {
		cfg.IntervalMs = *interval
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	if *saveConfig {
		if err := manager.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Printf("[INFO] 配置已保存到 %s\n", manager.GetConfigFile())
		}
	}

	// 初始化日志
	logger.Default().SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := logger.Default().SetFile(cfg.LogFile); err != nil {
			fmt.Printf("[WARN] 打开日志文件失败: %v\n", err)
		}
	}
	defer logger.Default().Close()

	// 打印启动信息
	fmt.Println("========================================")
	fmt.Printf("  Xian Worker v%s\n", Version)
	fmt.Println("========================================")
	fmt.Printf("Ollama: %s\n", cfg.OllamaURL)
	fmt.Printf("模型: %s\n", cfg.Model)
	fmt.Printf("语言: %s -> %s\n", cfg.SourceLang, cfg.TargetLang)
	fmt.Println()

	// macOS 权限检查
	if runtime.GOOS == "darwin" {
		checkMacOSPermissions()
	}

	// 翻译客户端
	client := translate.NewOllamaClient(cfg.OllamaURL, cfg.Model, time.Duration(cfg.TimeoutSec)*time.Second)

	if *listModels {
		models, err := client.AvailableModels()
		if err != nil {
			fmt.Printf("[ERROR] 获取模型列表失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("可用模型:")
		for _, m := range models {
			fmt.Printf("  %s\n", m)
		}
		return
	}

	if !client.IsAvailable() {
		fmt.Printf("[ERROR] Ollama 服务不可用: %s\n", cfg.OllamaURL)
		fmt.Println("[ERROR] 请确认服务已启动, 或使用 -ollama 指定地址")
		os.Exit(1)
	}

	// OCR 引擎
	if !ocr.IsAvailable() {
		fmt.Println("[ERROR] OCR 模型文件缺失, 请将模型放到 models/paddle_weights/ 目录")
		os.Exit(1)
	}
	ocrConfig := ocr.DefaultConfig()
	ocrConfig.MinConfidence = cfg.OCRMinConfidence
	engine, err := ocr.NewEngine(ocrConfig)
	if err != nil {
		fmt.Printf("[ERROR] 初始化 OCR 引擎失败: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	// 翻译服务与标注管理器
	service := translate.NewService(client, cfg.TextCacheSize, cfg.SourceLang, cfg.TargetLang)
	annotations := overlay.NewManager(overlayOptions(cfg))

	// 工作器
	workerOpts := worker.OptionsFromConfig(cfg)
	workerOpts.DebugDir = *snapshotDir
	w := worker.New(worker.ScreenCapturer{}, engine, service, workerOpts)

	// 捕获区域
	if regions, err := manager.LoadRegions(); err != nil {
		fmt.Printf("[WARN] 加载捕获区域失败: %v\n", err)
	} else if len(regions) > 0 {
		w.SetRegions(regions)
		fmt.Printf("[INFO] 已加载 %d 个捕获区域\n", len(regions))
	}

	// 服务状态监测
	checker := translate.NewStatusChecker(client, func(available bool) {
		if available {
			logger.Info("翻译服务已恢复")
		} else {
			logger.Warn("翻译服务不可用")
		}
	})
	checker.Trigger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 消费标注更新, 并把遮盖区域回传给工作器
	go consumeUpdates(ctx, w, annotations, *snapshotDir)

	// 工作循环
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	fmt.Println("[INFO] 翻译工作器已启动")
	fmt.Println("[INFO] 按 Ctrl+C 退出")

	// 等待中断信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println()
		fmt.Println("[INFO] 正在停止...")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && ctx.Err() == nil {
			fmt.Printf("[ERROR] 工作循环异常退出: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("[INFO] 已退出")
}

// overlayOptions 从流水线配置构造标注管理参数
func overlayOptions(cfg *config.PipelineConfig) overlay.Options {
	opts := overlay.DefaultOptions()
	opts.Paragraphs = cfg.ParagraphOCR
	opts.MaxInputs = cfg.OCRMaxInputs
	opts.MaxAnnotations = cfg.MaxAnnotations

	opts.Merge.MaxYDelta = cfg.MergeMaxYDelta
	opts.Merge.DupMaxXDelta = cfg.MergeDupMaxXDelta
	opts.Merge.JoinMinXDelta = cfg.MergeJoinMinXDelta
	opts.Merge.JoinMaxXDelta = cfg.MergeJoinMaxXDelta
	opts.Merge.VertClose = cfg.ParagraphVertClose
	opts.Merge.VertSlack = cfg.ParagraphVertSlack
	opts.Merge.HorizSlack = cfg.ParagraphHorizSlack

	opts.Match.MaxTextDist = cfg.MatchMaxTextDist
	opts.Match.MaxCenterDist = cfg.MatchMaxCenterDist
	opts.Match.AppendMaxGap = cfg.MatchAppendMaxGap
	opts.Match.AppendOverlap = cfg.MatchAppendOverlap
	opts.Match.Cutoff = cfg.MatchCutoff

	return opts
}

// consumeUpdates 消费工作器的标注更新
// 每次更新后把标注占用的屏幕区域回传, 供下一轮截屏遮盖
func consumeUpdates(ctx context.Context, w *worker.Worker, annotations *overlay.Manager, snapshotDir string) {
	snapshotSeq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-w.Updates():
			// 空的全屏更新只记录空状态, 不清除已有标注
			// 遮盖后的画面本来就识别不到标注下的原文
			annotations.Apply(update.Results, update.UpdatedArea)
			w.SetActiveGeometries(annotations.RedactionRects())
			logger.Info("%s", annotations.Stats())

			if snapshotDir != "" {
				snapshotSeq++
				path := fmt.Sprintf("%s/overlay-%04d.png", snapshotDir, snapshotSeq)
				width, height := capture.GetScreenSize()
				if err := overlay.SaveSnapshot(path, annotations.Annotations(), width, height); err != nil {
					logger.Warn("保存调试快照失败: %v", err)
				}
			}
		}
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Xian Worker v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("Xian Worker - 屏幕实时翻译工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  xianworker [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -ollama string       Ollama 服务地址 (例: http://localhost:11434)")
	fmt.Println("  -model string        翻译模型名 (例: qwen2.5:7b)")
	fmt.Println("  -source string       源语言 (auto 表示自动检测)")
	fmt.Println("  -target string       目标语言")
	fmt.Println("  -interval int        翻译周期间隔 (毫秒)")
	fmt.Println("  -log-level string    日志级别 (DEBUG/INFO/WARN/ERROR)")
	fmt.Println("  -log-file string     日志文件路径")
	fmt.Println("  -snapshot-dir string 调试快照输出目录")
	fmt.Println("  -list-models         列出可用模型后退出")
	fmt.Println("  -save                保存配置到本地")
	fmt.Println("  -version             显示版本信息")
	fmt.Println("  -help                显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 默认配置启动")
	fmt.Println("  xianworker")
	fmt.Println()
	fmt.Println("  # 指定翻译模型和目标语言")
	fmt.Println("  xianworker -model qwen2.5:7b -target zh")
	fmt.Println()
	fmt.Println("  # 指定并保存配置")
	fmt.Println("  xianworker -ollama http://localhost:11434 -model qwen2.5:7b -save")
}

// checkMacOSPermissions 检查 macOS 权限
func checkMacOSPermissions() {
	fmt.Println("[INFO] 正在检查 macOS 权限...")
	status := permissions.CheckPermissions()

	fmt.Printf("[INFO] 屏幕录制权限: %v\n", status.ScreenRecording)

	if status.AllGranted {
		fmt.Println("[INFO] 所有权限已授予")
		return
	}

	fmt.Println()
	fmt.Println("[WARN] 缺少屏幕录制权限 (用于截屏)")
	fmt.Println("[WARN] 请在 系统设置 > 隐私与安全性 中授权")
	fmt.Println("[WARN] 授权后需要重启应用")
	fmt.Println()
}
