package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	searchapp "github.com/jinford/assist-rag/internal/module/search/application"
)

// SearchAction は類似検索を実行して結果を表示する
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	req := searchapp.SearchRequest{
		Query: cmd.String("query"),
		TopK:  int(cmd.Int("top-k")),
	}
	if cmd.IsSet("threshold") {
		threshold := cmd.Float("threshold")
		req.Threshold = &threshold
	}
	req.BypassCache = cmd.Bool("no-cache")

	resp, err := ac.Container.SearchService.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("検索に失敗: %w", err)
	}

	fmt.Printf("候補 %d件 → 足切り後 %d件（閾値 %.2f、取得元: %s）\n\n",
		resp.TotalCandidates, resp.FilteredCount, resp.Threshold, resp.Source)

	for i, r := range resp.Results {
		text := r.Metadata.Text
		if r.Metadata.OriginalText != "" {
			text = r.Metadata.OriginalText
		}
		fmt.Printf("%d. [%s/%d] score=%.4f ranking=%.4f\n   %s\n",
			i+1, r.Metadata.Table, r.Metadata.RowID, r.Score, r.RankingScore, text)
	}

	return nil
}
