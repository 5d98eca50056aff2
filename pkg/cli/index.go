package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdIndex() *cli.Command {
	var rc runtimeConfig
	var reembedAll bool
	var limit int

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "reembed-all",
			Usage:       "Also regenerate embeddings produced by another model",
			Destination: &reembedAll,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of notes to process (default from config)",
			Destination: &limit,
		},
	}
	flags = append(flags, rc.flags()...)

	return &cli.Command{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "Generate embeddings for notes that lack one",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := rc.setup(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			input := rt.appCfg.IndexInput()
			if c.IsSet("reembed-all") {
				input.ReembedAll = reembedAll
			}
			if c.IsSet("limit") {
				input.Limit = limit
			}

			result, err := rt.uc.Index.Run(ctx, input)
			if result != nil {
				printIndexResult(os.Stdout, result)
			}
			if err != nil {
				return goerr.Wrap(err, "index run failed")
			}
			if result.Errors > 0 {
				return goerr.New("some notes failed to embed", goerr.V("errors", result.Errors))
			}
			return nil
		},
	}
}
