package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/repository/firestore"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var prefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the Firestore indexes the embedding store queries need",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("HYGIEIA_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("HYGIEIA_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Collection name prefix used by the repository",
				Sources:     cli.EnvVars("HYGIEIA_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &prefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Print the migration plan without applying it",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx).With("project_id", projectID, "database_id", databaseID)
			indexConfig := firestore.IndexConfig(prefix)

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("failed to close fireconf client", "error", err.Error())
				}
			}()

			plan, err := client.GetMigrationPlan(ctx, indexConfig)
			if err != nil {
				return goerr.Wrap(err, "failed to create migration plan")
			}

			steps := make([]migrationStep, 0, len(plan.Steps))
			for _, s := range plan.Steps {
				steps = append(steps, migrationStep{
					collection:  s.Collection,
					operation:   fmt.Sprint(s.Operation),
					description: s.Description,
					destructive: s.Destructive,
				})
			}
			printMigrationPlan(os.Stdout, steps, dryRun)

			if dryRun || len(steps) == 0 {
				return nil
			}

			if err := client.Migrate(ctx, indexConfig); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Firestore indexes migrated", "steps", len(steps))
			return nil
		},
	}
}
