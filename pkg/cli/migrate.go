package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	cfg := &config{}
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the relational schema and the vector collection",
		Flags: globalFlags(cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(); err != nil {
				return err
			}

			logger := logging.New(cfg.logLevel, os.Stderr)
			ctx = logging.With(ctx, logger)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("relational schema is ready")

			index, err := cfg.newIndex()
			if err != nil {
				return err
			}
			if err := index.EnsureCollection(ctx, int(cfg.embeddingDimension)); err != nil {
				return err
			}
			logger.Info("vector collection is ready",
				"collection", cfg.qdrantCollection,
				"dimension", cfg.embeddingDimension)

			return nil
		},
	}
}
