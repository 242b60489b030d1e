// Package bootstrap 封装了所有微服务的通用启动和优雅关停逻辑。
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bastion/internal/pkg/config"
	"bastion/internal/pkg/logger"
	"bastion/internal/pkg/nacos"
	"bastion/internal/pkg/tracing"
)

// AppCtx 传给各服务的路由注册函数。
type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP 服务器关停后执行，用于释放服务自己的资源。
	OnShutdown func(ctx context.Context)
}

// StartService 加载配置、初始化追踪与注册中心、启动 HTTP 服务并阻塞到退出信号。
func StartService(info AppInfo) {
	if err := config.Load(""); err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()

	logger.Init(info.ServiceName, cfg.App.LogLevel, cfg.App.LogFormat)

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// Nacos 是可选的：没配地址时只用静态服务表
	var namingClient *nacos.Client
	ip := ""
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err = outboundIP()
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient})
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.Logger().Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 阻塞到退出信号或服务器出错
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-gctx.Done():
	}
	logger.Logger().Info().Str("service", info.ServiceName).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 清理顺序：先注销，再收尾 tracer，最后关服务器（后进先出）
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.Logger().Error().Err(err).Msg("error deregistering from nacos")
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("error shutting down tracer provider")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("error shutting down http server")
	}

	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}

	if err := g.Wait(); err != nil {
		logger.Logger().Error().Err(err).Msg("server exited with error")
	}
	logger.Logger().Info().Str("service", info.ServiceName).Msg("gracefully shut down")
}

// outboundIP 获取本机对外 IP，用于服务注册。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
