package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/assist-rag/cmd/assist-rag/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "assist-rag",
		Usage: "個人アシスタント向け検索拡張会話サービス",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "HTTP/WebSocket APIサーバーを起動",
				Flags:  []cli.Flag{envFlag},
				Action: commands.ServeAction,
			},
			{
				Name:  "index",
				Usage: "インデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "all",
						Usage:  "全テーブルをインデックス",
						Flags:  []cli.Flag{envFlag},
						Action: commands.IndexAllAction,
					},
					{
						Name:  "table",
						Usage: "指定テーブルをインデックス",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "name",
								Usage:    "テーブル名",
								Required: true,
							},
						},
						Action: commands.IndexTableAction,
					},
					{
						Name:  "record",
						Usage: "指定レコードを再インデックス",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "table",
								Usage:    "テーブル名",
								Required: true,
							},
							&cli.Int64Flag{
								Name:     "id",
								Usage:    "レコードID",
								Required: true,
							},
						},
						Action: commands.IndexRecordAction,
					},
					{
						Name:  "delete",
						Usage: "指定レコードのベクトルをインデックスから削除",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "table",
								Usage:    "テーブル名",
								Required: true,
							},
							&cli.Int64Flag{
								Name:     "id",
								Usage:    "レコードID",
								Required: true,
							},
						},
						Action: commands.IndexDeleteAction,
					},
				},
			},
			{
				Name:  "search",
				Usage: "類似検索を実行",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "返却件数",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "類似度の足切り値（未指定なら設定値を使用）",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "クエリキャッシュを使用しない",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "vectors",
				Usage: "ベクトルインデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "count",
						Usage:  "保持しているベクトル数を表示",
						Flags:  []cli.Flag{envFlag},
						Action: commands.VectorsCountAction,
					},
					{
						Name:   "reset",
						Usage:  "ベクトルインデックスを全消去",
						Flags:  []cli.Flag{envFlag},
						Action: commands.VectorsResetAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
