package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var rc runtimeConfig
	var noteID int
	var query string
	var topK int
	var minSimilarity float64

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "note-id",
			Aliases:     []string{"n"},
			Usage:       "Find cases similar to this note",
			Destination: &noteID,
		},
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Find cases similar to this free text",
			Destination: &query,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Maximum number of cases to return",
			Value:       usecase.DefaultTopK,
			Destination: &topK,
		},
		&cli.FloatFlag{
			Name:        "min-similarity",
			Usage:       "Minimum cosine similarity in [-1, 1]",
			Value:       usecase.DefaultMinSimilarity,
			Destination: &minSimilarity,
		},
	}
	flags = append(flags, rc.flags()...)

	return &cli.Command{
		Name:    "search",
		Aliases: []string{"find"},
		Usage:   "Retrieve, summarize and synthesize similar cases",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			input := usecase.RetrieveInput{
				Query:         query,
				TopK:          topK,
				MinSimilarity: &minSimilarity,
			}
			if c.IsSet("note-id") {
				id := model.NoteID(noteID)
				input.NoteID = &id
			}

			rt, err := rc.setup(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			result, err := rt.uc.Retrieval.Retrieve(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "failed to retrieve similar cases")
			}

			printRetrieveResult(os.Stdout, result)
			return nil
		},
	}
}
