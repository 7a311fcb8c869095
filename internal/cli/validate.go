package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deckhand/deckhand/internal/render"
	"github.com/deckhand/deckhand/internal/validation"
)

// ValidationResult is the JSON payload for a validate run.
type ValidationResult struct {
	RevisionID string                   `json:"revision_id"`
	Valid      bool                     `json:"valid"`
	Errors     []validation.ErrorRecord `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var revision int64

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Render a revision and report validation errors",
		Long: `Renders a revision through the full pipeline and reports the
validation report's error records, without printing the rendered
document bodies. Exit code 1 if the revision has any error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), rootOpts, revision, cmd)
		},
	}
	cmd.Flags().Int64Var(&revision, "revision", 0, "revision to validate (default: latest)")

	return cmd
}

func runValidate(ctx context.Context, opts *RootOptions, revision int64, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Validating revision %d (%d documents)", resolved, len(docs))

	engine := render.New()
	out := engine.Render(ctx, fmt.Sprintf("%d", resolved), docs, controls)
	out.Report.SortErrors()

	result := ValidationResult{
		RevisionID: fmt.Sprintf("%d", resolved),
		Valid:      len(out.Report.Errors) == 0,
		Errors:     out.Report.Errors,
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "revision %s: valid\n", result.RevisionID)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("revision %s failed validation with %d error(s)", result.RevisionID, len(result.Errors)))
	}

	fmt.Fprintf(formatter.Writer, "revision %s: invalid\n\n", result.RevisionID)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s [%s/%s] %s: %s\n", e.Stage, e.Document.Schema, e.Document.Name, e.Kind, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("revision %s failed validation with %d error(s)", result.RevisionID, len(result.Errors)))
}
