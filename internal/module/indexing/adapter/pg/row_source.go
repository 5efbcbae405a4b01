// Package pg はリレーショナルDBをインデックス対象のレコード供給源として扱います
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/assist-rag/internal/module/indexing/domain"
)

// RowSource はpublicスキーマのテーブルを列挙してレコードを供給する実装
type RowSource struct {
	pool *pgxpool.Pool
}

// NewRowSource は新しいRowSourceを作成します
func NewRowSource(pool *pgxpool.Pool) *RowSource {
	return &RowSource{pool: pool}
}

// Tables はpublicスキーマの実テーブル名を返す
// domain.RowSourceインターフェースを実装
func (s *RowSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table names: %w", err)
	}

	return tables, nil
}

// Rows は指定テーブルの全レコードをカラム定義順のまま返す
// domain.RowSourceインターフェースを実装
//
// テーブル名は列挙済みの一覧と照合してから識別子として埋め込む
// （プレースホルダでは識別子を渡せないため）
func (s *RowSource) Rows(ctx context.Context, table string) ([]domain.Row, error) {
	known, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(known, table) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, table)
	}

	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY id`, pgx.Identifier{table}.Sanitize())
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	columns := make([]string, 0)
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	var result []domain.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		row := domain.Row{Table: table, Fields: make([]domain.Field, 0, len(columns))}
		for i, col := range columns {
			row.Fields = append(row.Fields, domain.Field{Name: col, Value: values[i]})

			switch col {
			case "id":
				row.ID = toInt64(values[i])
			case "user_id":
				if values[i] != nil {
					id := toInt64(values[i])
					row.UserID = &id
				}
			case "created_at":
				if ts, ok := values[i].(time.Time); ok {
					row.CreatedAt = ts.Format(time.RFC3339)
				}
			}
		}

		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}

	return result, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func contains(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

// インターフェース実装の確認
var _ domain.RowSource = (*RowSource)(nil)
