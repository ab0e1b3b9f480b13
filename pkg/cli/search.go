package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	cfg := &config{}
	var (
		limit   int64
		memType string
		source  string
		tags    []string
	)

	flags := append(globalFlags(cfg),
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Value:       model.DefaultSearchLimit,
			Destination: &limit,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Only return memories of this category",
			Destination: &memType,
		},
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "Only return memories from this source",
			Destination: &source,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Only return memories sharing this tag (repeatable)",
			Destination: &tags,
		},
	)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search memories by semantic similarity",
		ArgsUsage: "<query>",
		Flags:     flags,
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

			results, err := uc.Search(ctx, &model.SearchMemoryInput{
				Query: strings.Join(c.Args().Slice(), " "),
				Limit: int(limit),
				Filters: model.SearchFilters{
					Type:   model.MemoryType(memType),
					Source: source,
					Tags:   tags,
				},
			})
			if err != nil {
				return err
			}

			items := make([]map[string]any, 0, len(results))
			for _, result := range results {
				item := memoryFields(result.Memory)
				item["score"] = result.Score
				items = append(items, item)
			}
			return printJSON(map[string]any{"results": items})
		},
	}
}

func memoryFields(mem *model.Memory) map[string]any {
	item := map[string]any{
		"id":         int64(mem.ID),
		"text":       mem.Text,
		"type":       string(mem.Type),
		"created_at": mem.CreatedAt,
	}
	if mem.Source != "" {
		item["source"] = mem.Source
	}
	if len(mem.Tags) > 0 {
		item["tags"] = mem.Tags
	}
	if len(mem.Metadata) > 0 {
		item["metadata"] = mem.Metadata
	}
	return item
}
