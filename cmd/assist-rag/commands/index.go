package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// IndexAllAction は全テーブルを一括インデックスする
func IndexAllAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	report, err := ac.Container.IndexingService.IndexAll(ctx, ac.Container.SystemTables())
	if err != nil {
		return fmt.Errorf("一括インデックスに失敗: %w", err)
	}

	for _, table := range report.Tables {
		if table.Error != "" {
			fmt.Printf("✗ %s: %s\n", table.Table, table.Error)
			continue
		}
		fmt.Printf("✓ %s: %dレコード %dチャンク\n", table.Table, table.Records, table.Chunks)
	}
	fmt.Printf("合計 %dチャンク（失敗 %dテーブル）\n", report.TotalChunks, report.Failed)

	ac.Container.SearchService.ClearCache()
	return nil
}

// IndexTableAction は指定テーブルをインデックスする
func IndexTableAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	table := cmd.String("name")
	chunks, err := ac.Container.IndexingService.IndexTable(ctx, table)
	if err != nil {
		return fmt.Errorf("テーブル %s のインデックスに失敗: %w", table, err)
	}

	fmt.Printf("✓ %s: %dチャンク\n", table, chunks)

	ac.Container.SearchService.ClearCache()
	return nil
}

// IndexRecordAction は指定レコードを再インデックスする
func IndexRecordAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	table := cmd.String("table")
	rowID := cmd.Int64("id")

	chunks, err := ac.Container.IndexingService.IndexRecord(ctx, table, rowID)
	if err != nil {
		return fmt.Errorf("レコード %s/%d のインデックスに失敗: %w", table, rowID, err)
	}

	fmt.Printf("✓ %s/%d: %dチャンク\n", table, rowID, chunks)

	ac.Container.SearchService.ClearCache()
	return nil
}

// IndexDeleteAction は指定レコードのベクトルをインデックスから削除する
func IndexDeleteAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	table := cmd.String("table")
	rowID := cmd.Int64("id")

	if err := ac.Container.IndexingService.DeleteRecord(ctx, table, rowID); err != nil {
		return fmt.Errorf("レコード %s/%d の削除に失敗: %w", table, rowID, err)
	}

	fmt.Printf("✓ %s/%d: 削除完了\n", table, rowID)

	ac.Container.SearchService.ClearCache()
	return nil
}
