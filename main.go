package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"catalog-go/internal/assets"
	"catalog-go/internal/cache"
	"catalog-go/internal/compression"
	"catalog-go/internal/config"
	"catalog-go/internal/constants"
	"catalog-go/internal/enrichment"
	"catalog-go/internal/handler"
	"catalog-go/internal/initapp"
	"catalog-go/internal/metrics"
	"catalog-go/internal/middleware"
	"catalog-go/internal/service"
	"catalog-go/internal/storage"
	"catalog-go/internal/upstream"
)

// Route 定义路由结构
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func main() {

	// 初始化应用程序（.env、数据目录）
	configPath := "data/config.json"
	if err := initapp.Init(configPath); err != nil {
		log.Fatal("Error initializing application:", err)
	}

	// 初始化配置管理器
	configManager, err := config.Init(configPath)
	if err != nil {
		log.Fatal("Error initializing config manager:", err)
	}
	cfg := configManager.GetConfig()

	// 更新常量配置
	constants.UpdateFromConfig(cfg)

	// 压缩管理器，配置更新后整体替换
	var compManagerAtomic atomic.Value
	compManagerAtomic.Store(compression.NewManager(compression.Config{
		Gzip:   compression.CompressorConfig(cfg.Compression.Gzip),
		Brotli: compression.CompressorConfig(cfg.Compression.Brotli),
	}))

	// 注册配置更新回调
	config.RegisterUpdateCallback(func(newCfg *config.Config) {
		constants.UpdateFromConfig(newCfg)
		compManagerAtomic.Store(compression.NewManager(compression.Config{
			Gzip:   compression.CompressorConfig(newCfg.Compression.Gzip),
			Brotli: compression.CompressorConfig(newCfg.Compression.Brotli),
		}))
		log.Printf("[Config] 压缩管理器配置已更新")
	})

	// 创建请求缓存，唯一实例，注入所有上游客户端
	requestCache := cache.New(constants.CacheTTL, constants.MaxCacheEntries)
	log.Printf("[Main] 请求缓存已创建 TTL=%v 容量=%d", requestCache.TTL(), constants.MaxCacheEntries)

	// 上游健康检查
	probes := []string{cfg.Upstream.BaseURL}
	if cfg.EnrichmentConfigured() {
		probes = append(probes, cfg.Enrichment.Endpoint)
	}
	healthChecker := service.NewHealthChecker(probes)

	// 星战数据API客户端
	swapiClient := upstream.NewClient(upstream.Options{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    constants.UpstreamTimeout,
		MaxRetries: constants.MaxRetries,
		Health:     healthChecker,
	}, requestCache)

	// 扩展数据库客户端（未配置时跳过，目录退化为纯上游数据）
	var enrichClient *enrichment.Client
	if cfg.EnrichmentConfigured() {
		enrichClient = enrichment.NewClient(
			cfg.Enrichment.Endpoint,
			cfg.Enrichment.Token,
			time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second,
			requestCache,
		)
	} else {
		log.Printf("[Main] 未配置扩展数据库，跳过自定义字段")
	}

	// 图片对象存储客户端
	var assetStore *assets.Store
	if cfg.StorageConfigured() {
		assetStore, err = assets.NewStore(cfg.Storage)
		if err != nil {
			log.Fatal("Error initializing asset store:", err)
		}
		if err := assetStore.TestConnection(context.Background()); err != nil {
			log.Printf("[Main] 对象存储连接检查失败: %v", err)
		}
	} else {
		log.Printf("[Main] 未配置对象存储，图片接口不可用")
	}

	// 目录服务
	catalogService := service.NewCatalogService(swapiClient, enrichClient, healthChecker)

	// 指标收集与落盘
	collector := metrics.NewCollector()
	var metricsDB *sql.DB
	var metricsStorage *metrics.MetricsStorage
	if cfg.Metrics.DBPath != "" {
		metricsDB, err = storage.Open(cfg.Metrics.DBPath)
		if err != nil {
			log.Printf("[Main] 打开指标数据库失败: %v，历史指标不可用", err)
		} else {
			metricsStorage = metrics.NewMetricsStorage(collector, metricsDB, constants.MetricsSaveInterval)
			metricsStorage.Start()
		}
	}

	// 创建处理器
	catalogHandler := handler.NewCatalogHandler(catalogService)
	imageHandler := handler.NewImageHandler(assetStore)
	healthHandler := handler.NewHealthHandler(catalogService)
	cacheAdminHandler := handler.NewCacheAdminHandler(requestCache)
	configAdminHandler := handler.NewConfigAdminHandler(configManager)
	metricsHandler := handler.NewMetricsHandler(collector, metricsDB)

	// 定义API路由
	apiRoutes := []Route{
		{http.MethodGet, "/api/health", healthHandler.GetHealth},
		{http.MethodGet, "/admin/api/cache/stats", cacheAdminHandler.GetCacheStats},
		{http.MethodGet, "/admin/api/cache/config", cacheAdminHandler.GetCacheConfig},
		{http.MethodPost, "/admin/api/cache/enable", cacheAdminHandler.SetCacheEnabled},
		{http.MethodPost, "/admin/api/cache/clear", cacheAdminHandler.ClearCache},
		{http.MethodGet, "/admin/api/config/get", configAdminHandler.GetConfig},
		{http.MethodPost, "/admin/api/config/save", configAdminHandler.SaveConfig},
		{http.MethodGet, "/admin/api/metrics", metricsHandler.GetMetrics},
		{http.MethodGet, "/admin/api/metrics/history", metricsHandler.GetHistory},
	}

	// 创建路由处理器
	handlers := []struct {
		matcher func(*http.Request) bool
		handler http.Handler
	}{
		// 资源接口
		{
			matcher: func(r *http.Request) bool {
				return r.URL.Path == "/api/people" || strings.HasPrefix(r.URL.Path, "/api/people/")
			},
			handler: http.HandlerFunc(catalogHandler.People),
		},
		{
			matcher: func(r *http.Request) bool {
				return r.URL.Path == "/api/planets" || strings.HasPrefix(r.URL.Path, "/api/planets/")
			},
			handler: http.HandlerFunc(catalogHandler.Planets),
		},
		{
			matcher: func(r *http.Request) bool {
				return r.URL.Path == "/api/species" || strings.HasPrefix(r.URL.Path, "/api/species/")
			},
			handler: http.HandlerFunc(catalogHandler.Species),
		},
		// 图片代理
		{
			matcher: func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, "/api/images/")
			},
			handler: http.HandlerFunc(imageHandler.ServeImage),
		},
		// 精确匹配的API路由
		{
			matcher: func(r *http.Request) bool {
				for _, route := range apiRoutes {
					if r.URL.Path == route.Pattern {
						return true
					}
				}
				return false
			},
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for _, route := range apiRoutes {
					if r.URL.Path == route.Pattern {
						if r.Method != route.Method {
							http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
							return
						}
						route.Handler(w, r)
						return
					}
				}
			}),
		},
	}

	// 创建主处理器
	mainHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "Star Wars catalog API.")
			return
		}

		for _, h := range handlers {
			if h.matcher(r) {
				h.handler.ServeHTTP(w, r)
				return
			}
		}

		http.NotFound(w, r)
	})

	// 构建中间件链，压缩管理器每次请求从atomic读取，配置热更新即时生效
	var rootHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		currentCompManager := compManagerAtomic.Load().(compression.Manager)
		middleware.CompressionMiddleware(currentCompManager)(mainHandler).ServeHTTP(w, r)
	})

	// 指标中间件（最外层，覆盖所有请求）
	rootHandler = middleware.MetricsMiddleware(collector)(rootHandler)

	// 创建服务器
	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: rootHandler,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down server...")

		healthChecker.Stop()

		if metricsStorage != nil {
			metricsStorage.Stop()
		}
		if metricsDB != nil {
			metricsDB.Close()
		}

		if err := server.Close(); err != nil {
			log.Printf("Error during server shutdown: %v\n", err)
		}
	}()

	// 启动服务器
	log.Printf("Starting catalog server on %s", cfg.Server.Listen)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Error starting server:", err)
	}
}
