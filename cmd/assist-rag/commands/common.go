// Package commands はCLIコマンドの実装を提供します
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/assist-rag/internal/platform/config"
	"github.com/jinford/assist-rag/internal/platform/container"
	"github.com/jinford/assist-rag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
	Logger    *slog.Logger
}

// NewAppContext は設定を読み込み、依存一式を組み立てる
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.DefaultConfig())

	cont, err := container.New(ctx, cfg, appLogger)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	if err := cont.EnsureSchema(ctx); err != nil {
		cont.Close()
		return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
		Logger:    appLogger,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}
