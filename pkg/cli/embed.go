package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdEmbed() *cli.Command {
	var rc runtimeConfig
	var noteID int
	var force bool

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "note-id",
			Aliases:     []string{"n"},
			Usage:       "ID of the note to embed",
			Required:    true,
			Destination: &noteID,
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Regenerate even when the cached embedding is valid",
			Destination: &force,
		},
	}
	flags = append(flags, rc.flags()...)

	return &cli.Command{
		Name:    "embed",
		Aliases: []string{"e"},
		Usage:   "Generate or refresh the embedding of a single note",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if noteID <= 0 {
				return goerr.New("note-id must be positive", goerr.V(model.NoteIDKey, noteID))
			}

			rt, err := rc.setup(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			id := model.NoteID(noteID)
			result, err := rt.uc.Embedding.EnsureByID(ctx, id, force)
			if err != nil {
				return goerr.Wrap(err, "failed to embed note", goerr.V(model.NoteIDKey, id))
			}

			printEnsureResult(os.Stdout, id, result)
			return nil
		},
	}
}
