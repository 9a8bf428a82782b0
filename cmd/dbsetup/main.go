// dbsetup создаёт базу задач, если её нет, и накатывает миграции.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"taskcraft/internal/config"
	"taskcraft/internal/logger"
	"taskcraft/internal/migrations"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yml", "путь к YAML конфигурации")
	writeConfig := flag.String("write-config", "", "записать конфигурацию по умолчанию в файл и выйти")
	flag.Parse()

	if err := logger.Init(true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *writeConfig != "" {
		if err := config.Write(*writeConfig, config.Default()); err != nil {
			logger.Error("DBSetup: Не удалось записать конфигурацию", err)
			os.Exit(1)
		}
		logger.Info("DBSetup: Конфигурация записана", zap.String("path", *writeConfig))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("DBSetup: Ошибка конфигурации", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("DBSetup: Провал", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("DBSetup: База готова")
}

func run(ctx context.Context, cfg *config.Config) error {
	name, err := databaseName(cfg.Database.URL)
	if err != nil {
		return err
	}

	if err := createDatabase(ctx, cfg.Database.AdminURL, name); err != nil {
		return err
	}

	return migrations.Up(cfg.Database.URL)
}

// databaseName достаёт имя базы из postgres://.../<name>?...
func databaseName(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("разбор database.url: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", errors.New("в database.url не указано имя базы")
	}
	return name, nil
}

func createDatabase(ctx context.Context, adminURL, name string) error {
	db, err := sql.Open("postgres", adminURL)
	if err != nil {
		return fmt.Errorf("подключение к служебной базе: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("служебная база недоступна: %w", err)
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("проверка базы %s: %w", name, err)
	}
	if exists {
		logger.Info("DBSetup: База уже существует", zap.String("database", name))
		return nil
	}

	// CREATE DATABASE не принимает параметры, имя экранируем сами
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("создание базы %s: %w", name, err)
	}
	logger.Info("DBSetup: База создана", zap.String("database", name))
	return nil
}
