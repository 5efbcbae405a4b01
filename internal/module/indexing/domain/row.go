package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field はレコードの1カラムを表します
// カラム順を保持するため、mapではなくスライスで持つ
type Field struct {
	Name  string
	Value any
}

// Row はインデックス対象テーブルの1レコードを表します
type Row struct {
	// Table は由来テーブル名
	Table string

	// ID はレコードの主キー値
	ID int64

	// UserID はレコードが特定ユーザーに紐づく場合のユーザーID
	UserID *int64

	// CreatedAt はレコードの作成日時（取得できた場合のみ）
	CreatedAt string

	// Fields はカラム順を保持したフィールドの列
	Fields []Field
}

// Flatten はレコードを埋め込み対象の1行テキストへ整形する
//
// "カラム名: 値 | カラム名: 値" の形式。nil値のカラムはスキップし、
// 時刻はISO 8601で整形する
func (r Row) Flatten() string {
	parts := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.Value == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, formatValue(f.Value)))
	}
	return strings.Join(parts, " | ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
