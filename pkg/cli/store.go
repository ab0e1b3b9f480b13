package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func storeCommand() *cli.Command {
	cfg := &config{}
	var (
		memType  string
		source   string
		tags     []string
		metadata string
	)

	flags := append(globalFlags(cfg),
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Memory category",
			Required:    true,
			Destination: &memType,
		},
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Where the memory came from",
			Destination: &source,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Tag to attach (repeatable)",
			Destination: &tags,
		},
		&cli.StringFlag{
			Name:        "metadata",
			Aliases:     []string{"m"},
			Usage:       "Metadata as a JSON object",
			Destination: &metadata,
		},
	)

	return &cli.Command{
		Name:      "store",
		Usage:     "Store a memory",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(); err != nil {
				return err
			}
			ctx = logging.With(ctx, logging.New(cfg.logLevel, os.Stderr))

			text := strings.Join(c.Args().Slice(), " ")

			var meta model.Metadata
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
					return goerr.Wrap(err, "metadata must be a JSON object")
				}
			}

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			out, err := uc.Store(ctx, &model.StoreMemoryInput{
				Text:     text,
				Type:     model.MemoryType(memType),
				Source:   source,
				Tags:     tags,
				Metadata: meta,
			})
			if err != nil {
				return err
			}

			return printJSON(map[string]any{
				"success":   true,
				"memory_id": int64(out.MemoryID),
				"vector_id": out.VectorID,
			})
		},
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	return nil
}
