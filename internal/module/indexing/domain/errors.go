package domain

import "errors"

var (
	// ErrTableNotFound は指定テーブルがインデックス対象に存在しない
	ErrTableNotFound = errors.New("table not found")

	// ErrRecordNotFound は指定レコードがテーブルに存在しない
	ErrRecordNotFound = errors.New("record not found")

	// ErrEmptyText はインデックス対象テキストが空
	ErrEmptyText = errors.New("text is empty")
)
