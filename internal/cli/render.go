package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deckhand/deckhand/internal/render"
	"github.com/deckhand/deckhand/internal/value"
)

// RenderedDocument is the JSON-shaped view of one rendered document.
type RenderedDocument struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Data   any    `json:"data"`
}

// RenderOutput is the JSON payload for a render run.
type RenderOutput struct {
	RevisionID string             `json:"revision_id"`
	Documents  []RenderedDocument `json:"documents"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a revision and print the resulting documents",
		Long: `Renders a revision's document snapshot through the layering,
secret-dereference, substitution, and replacement pipeline and prints
the resulting concrete documents.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), rootOpts, revision, cmd)
		},
	}
	cmd.Flags().Int64Var(&revision, "revision", 0, "revision to render (default: latest)")

	return cmd
}

func runRender(ctx context.Context, opts *RootOptions, revision int64, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openStore(opts.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	resolved, docs, controls, err := loadRevision(ctx, s, revision)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Rendering revision %d (%d documents)", resolved, len(docs))

	engine := render.New()
	revisionLabel := fmt.Sprintf("%d", resolved)
	out := engine.Render(ctx, revisionLabel, docs, controls)

	if len(out.Report.Errors) > 0 {
		out.Report.SortErrors()
		first := out.Report.Errors[0]
		return NewExitError(ExitFailure, fmt.Sprintf("revision %s failed to render: %s: %s", revisionLabel, first.Kind, first.Message))
	}

	output := RenderOutput{RevisionID: revisionLabel}
	for _, d := range out.Documents {
		output.Documents = append(output.Documents, RenderedDocument{
			Schema: d.Schema,
			Name:   d.Metadata.Name,
			Data:   value.ToInterface(out.Data[d.ID()]),
		})
	}

	return outputRenderResult(formatter, output)
}

func outputRenderResult(formatter *OutputFormatter, output RenderOutput) error {
	if formatter.Format == "json" {
		return formatter.Success(output)
	}

	fmt.Fprintf(formatter.Writer, "revision %s: %d document(s)\n\n", output.RevisionID, len(output.Documents))
	for _, d := range output.Documents {
		fmt.Fprintf(formatter.Writer, "--- %s/%s\n%v\n", d.Schema, d.Name, d.Data)
	}
	return nil
}
