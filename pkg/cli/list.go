package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	cfg := &config{}
	var (
		memType string
		source  string
		limit   int64
		offset  int64
	)

	flags := append(globalFlags(cfg),
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Only list memories of this category",
			Destination: &memType,
		},
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Only list memories from this source",
			Destination: &source,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       model.DefaultListLimit,
			Destination: &limit,
		},
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Skip count for pagination",
			Destination: &offset,
		},
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List memories, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(); err != nil {
				return err
			}
			ctx = logging.With(ctx, logging.New(cfg.logLevel, os.Stderr))

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			memories, err := uc.List(ctx, &model.ListMemoriesInput{
				Type:   model.MemoryType(memType),
				Source: source,
				Limit:  int(limit),
				Offset: int(offset),
			})
			if err != nil {
				return err
			}

			items := make([]map[string]any, 0, len(memories))
			for _, mem := range memories {
				items = append(items, memoryFields(mem))
			}
			return printJSON(map[string]any{"memories": items})
		},
	}
}
