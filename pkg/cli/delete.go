package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	cfg := &config{}
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a memory by ID",
		ArgsUsage: "<memory-id>",
		Flags:     globalFlags(cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(); err != nil {
				return err
			}
			ctx = logging.With(ctx, logging.New(cfg.logLevel, os.Stderr))

			if c.Args().Len() != 1 {
				return goerr.New("exactly one memory ID is required")
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return goerr.Wrap(err, "memory ID must be an integer",
					goerr.V("arg", c.Args().First()))
			}

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := uc.Delete(ctx, &model.DeleteMemoryInput{
				MemoryID: model.MemoryID(id),
			}); err != nil {
				return err
			}

			return printJSON(map[string]any{"success": true})
		},
	}
}
