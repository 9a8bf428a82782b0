package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"taskcraft/internal/app"
	"taskcraft/internal/config"
	"taskcraft/internal/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yml", "путь к YAML конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		logger.Error("Не удалось запустить приложение", err)
		logger.Sync()
		os.Exit(1)
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Error("Сервер остановился с ошибкой", err)
			logger.Sync()
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, application.Shutdowns())

	exitCode := <-wait
	logger.Info("Приложение завершено", zap.Int("exit_code", exitCode))
	os.Exit(exitCode)
}
