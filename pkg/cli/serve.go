package cli

import (
	"context"
	"os"

	controller "github.com/m-mizutani/engram/pkg/controller/mcp"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	cfg := &config{}
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the memory tools over MCP stdio",
		Flags: append(globalFlags(cfg), rateLimitFlags(cfg)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(); err != nil {
				return err
			}

			logger := logging.New(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			opts := []controller.Option{
				controller.WithClientID(cfg.clientID),
			}
			if limiter := cfg.newLimiter(); limiter != nil {
				opts = append(opts, controller.WithLimiter(limiter))
				logger.Info("admission control enabled",
					"limit", cfg.rateLimit, "window", cfg.rateWindow)
			}

			logger.Info("starting MCP server",
				"collection", cfg.qdrantCollection,
				"embedding_model", cfg.embeddingModel)
			return controller.New(uc, opts...).Run(ctx)
		},
	}
}
