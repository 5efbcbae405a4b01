package domain

import "context"

// RowSource はインデックス対象のレコードを供給します
type RowSource interface {
	// Tables はインデックス可能なテーブル名の一覧を返す
	Tables(ctx context.Context) ([]string, error)

	// Rows は指定テーブルの全レコードをカラム順を保持して返す
	Rows(ctx context.Context, table string) ([]Row, error)
}
