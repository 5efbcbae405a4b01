// Package application はインデキシングモジュールのユースケースを提供します
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/assist-rag/internal/module/indexing/domain"
	searchdomain "github.com/jinford/assist-rag/internal/module/search/domain"
)

// embeddingBatchSize は1回の埋め込みAPIコールに載せる最大チャンク数
const embeddingBatchSize = 100

// Embedder はチャンクテキストをベクトル化する
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter はベクトルインデックスへの書き込み操作
type VectorWriter interface {
	Upsert(ctx context.Context, vectors [][]float32, payloads []searchdomain.Metadata) (searchdomain.UpsertResult, error)
	DeleteByRecord(ctx context.Context, table string, rowID int64) error
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Translator は埋め込み前のテキスト翻訳に使う（任意依存）
type Translator interface {
	Translate(ctx context.Context, text string, sourceLang string, targetLang string) (string, error)
}

// TableReport はテーブル1つ分のインデックス結果
type TableReport struct {
	Table   string `json:"table"`
	Records int    `json:"records"`
	Chunks  int    `json:"chunks"`
	Error   string `json:"error,omitempty"`
}

// IndexReport は全体インデックスの結果
type IndexReport struct {
	Tables      []TableReport `json:"tables"`
	TotalChunks int           `json:"total_chunks"`
	Failed      int           `json:"failed"`
}

// IndexingService はレコードのチャンク化・埋め込み・インデックス登録を行います
//
// レコード単位の更新は削除してから挿入する。重複は発生しないが、
// 削除と挿入の間に検索が走ると該当レコードが一時的にヒットしない
type IndexingService struct {
	source     domain.RowSource
	embedder   Embedder
	writer     VectorWriter
	translator Translator // nilなら翻訳しない
	sourceLang string
	targetLang string
	chunkSize  int
	overlap    int
	logger     *slog.Logger
}

// Option はIndexingServiceの挙動を変更するオプション
type Option func(*IndexingService)

// WithTranslator は埋め込み前のテキスト翻訳を有効にする
// 翻訳時は原文をoriginal_textとしてペイロードに残す
func WithTranslator(t Translator, source, target string) Option {
	return func(s *IndexingService) {
		s.translator = t
		s.sourceLang = source
		s.targetLang = target
	}
}

// WithChunkConfig はチャンクサイズとオーバーラップを変更する
func WithChunkConfig(size, overlap int) Option {
	return func(s *IndexingService) {
		s.chunkSize = size
		s.overlap = overlap
	}
}

// NewIndexingService は新しいIndexingServiceを作成します
func NewIndexingService(
	source domain.RowSource,
	embedder Embedder,
	writer VectorWriter,
	logger *slog.Logger,
	opts ...Option,
) *IndexingService {
	s := &IndexingService{
		source:    source,
		embedder:  embedder,
		writer:    writer,
		chunkSize: domain.DefaultChunkSize,
		overlap:   domain.DefaultChunkOverlap,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexAll は除外リスト以外の全テーブルをインデックスする
//
// テーブル単位の失敗は致命的ではなく、記録した上で残りを続行する
func (s *IndexingService) IndexAll(ctx context.Context, exclude []string) (IndexReport, error) {
	tables, err := s.source.Tables(ctx)
	if err != nil {
		return IndexReport{}, fmt.Errorf("failed to list tables: %w", err)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, t := range exclude {
		excluded[t] = struct{}{}
	}

	var report IndexReport
	for _, table := range tables {
		if _, skip := excluded[table]; skip {
			continue
		}

		records, chunks, err := s.indexTable(ctx, table)
		tr := TableReport{Table: table, Records: records, Chunks: chunks}
		if err != nil {
			tr.Error = err.Error()
			report.Failed++
			s.logger.Error("failed to index table",
				slog.String("table", table), slog.Any("error", err))
		}
		report.Tables = append(report.Tables, tr)
		report.TotalChunks += chunks
	}

	return report, nil
}

// IndexTable は1テーブルの全レコードをインデックスしてチャンク数を返す
// 途中で失敗した場合は、失敗時点までのチャンク数とエラーを返す
func (s *IndexingService) IndexTable(ctx context.Context, table string) (int, error) {
	_, chunks, err := s.indexTable(ctx, table)
	return chunks, err
}

func (s *IndexingService) indexTable(ctx context.Context, table string) (records, chunks int, err error) {
	rows, err := s.source.Rows(ctx, table)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range rows {
		n, err := s.indexRow(ctx, row)
		if err != nil {
			// 失敗時点までの進捗を返しつつエラーを伝播する
			return records, chunks, fmt.Errorf("failed to index record %s/%d: %w", table, row.ID, err)
		}
		records++
		chunks += n
	}

	s.logger.Info("table indexed",
		slog.String("table", table),
		slog.Int("records", records),
		slog.Int("chunks", chunks))

	return records, chunks, nil
}

// IndexRecord は1レコードを再インデックスする
// 既存ベクトルを削除してから挿入するため、同一レコードの重複は発生しない
func (s *IndexingService) IndexRecord(ctx context.Context, table string, rowID int64) (int, error) {
	rows, err := s.source.Rows(ctx, table)
	if err != nil {
		return 0, err
	}

	for _, row := range rows {
		if row.ID == rowID {
			return s.indexRow(ctx, row)
		}
	}

	return 0, fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, rowID)
}

// DeleteRecord は1レコードのベクトルをインデックスから取り除く
func (s *IndexingService) DeleteRecord(ctx context.Context, table string, rowID int64) error {
	return s.writer.DeleteByRecord(ctx, table, rowID)
}

// IndexDocument は任意のテキストを指定の (table, rowID) でインデックスする
// 会話履歴の自己インデックスなど、DBレコードを経由しない登録に使う
func (s *IndexingService) IndexDocument(ctx context.Context, table string, rowID int64, text string, userID *int64, createdAt string) (int, error) {
	if text == "" {
		return 0, domain.ErrEmptyText
	}

	return s.indexText(ctx, table, rowID, text, userID, createdAt)
}

// Reset はベクトルインデックスを全消去する
func (s *IndexingService) Reset(ctx context.Context) error {
	if err := s.writer.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset vector index: %w", err)
	}
	s.logger.Info("vector index reset")
	return nil
}

// Count はベクトルインデックスの保持件数を返す
func (s *IndexingService) Count(ctx context.Context) (int64, error) {
	return s.writer.Count(ctx)
}

func (s *IndexingService) indexRow(ctx context.Context, row domain.Row) (int, error) {
	text := row.Flatten()
	if text == "" {
		return 0, nil
	}

	return s.indexText(ctx, row.Table, row.ID, text, row.UserID, row.CreatedAt)
}

// indexText は削除→チャンク化→（翻訳）→埋め込み→挿入の本体
func (s *IndexingService) indexText(ctx context.Context, table string, rowID int64, text string, userID *int64, createdAt string) (int, error) {
	if err := s.writer.DeleteByRecord(ctx, table, rowID); err != nil {
		return 0, fmt.Errorf("failed to delete existing vectors: %w", err)
	}

	chunks := domain.SplitText(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	payloads := make([]searchdomain.Metadata, len(chunks))
	for i, chunk := range chunks {
		embedText := chunk.Text
		originalText := ""

		if s.translator != nil {
			translated, err := s.translator.Translate(ctx, chunk.Text, s.sourceLang, s.targetLang)
			if err != nil {
				s.logger.Warn("chunk translation failed, using original text",
					slog.String("table", table),
					slog.Int64("row_id", rowID),
					slog.Any("error", err))
			} else {
				embedText = translated
				originalText = chunk.Text
			}
		}

		texts[i] = embedText
		payloads[i] = searchdomain.Metadata{
			Table:        table,
			RowID:        rowID,
			ChunkIndex:   chunk.Index,
			ChunkCount:   chunk.Count,
			UserID:       userID,
			CreatedAt:    createdAt,
			Text:         embedText,
			OriginalText: originalText,
		}
	}

	inserted := 0
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(texts))

		vectors, err := s.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return inserted, fmt.Errorf("failed to embed chunks: %w", err)
		}

		result, err := s.writer.Upsert(ctx, vectors, payloads[start:end])
		if err != nil {
			return inserted, fmt.Errorf("failed to upsert vectors: %w", err)
		}
		inserted += result.Inserted
	}

	return inserted, nil
}
