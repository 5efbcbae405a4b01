package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/assist-rag/internal/interface/httpapi"
)

// ServeAction はHTTP/WebSocket APIサーバーを起動する
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	server := httpapi.NewServer(
		ac.Config.HTTP.Addr,
		ac.Container.ChatService,
		ac.Container.SearchService,
		ac.Container.IndexingService,
		ac.Container.SystemTables(),
		ac.Logger,
	)

	return server.Start(ctx)
}
