package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "engram",
		Usage: "Durable semantic memory service",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			storeCommand(),
			searchCommand(),
			listCommand(),
			deleteCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
