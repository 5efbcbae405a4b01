package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// VectorsCountAction はベクトルインデックスの保持件数を表示する
func VectorsCountAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	count, err := ac.Container.IndexingService.Count(ctx)
	if err != nil {
		return fmt.Errorf("ベクトル数の取得に失敗: %w", err)
	}

	fmt.Printf("ベクトル数: %d\n", count)
	return nil
}

// VectorsResetAction はベクトルインデックスを全消去する
func VectorsResetAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	if err := ac.Container.IndexingService.Reset(ctx); err != nil {
		return fmt.Errorf("ベクトルインデックスの消去に失敗: %w", err)
	}

	ac.Container.SearchService.ClearCache()
	fmt.Println("✓ ベクトルインデックスを消去しました")
	return nil
}
