package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// DiffOutput is the JSON payload for a diff run.
type DiffOutput struct {
	RevisionID           int64             `json:"revision_id"`
	ComparisonRevisionID int64             `json:"comparison_revision_id"`
	Buckets              map[string]string `json:"buckets"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <revision> <comparison-revision>",
		Short: "Classify bucket changes between two revisions",
		Long: `Compares the bucket membership and content of two revisions and
classifies each bucket as created, deleted, modified, or unmodified.
Revision 0 denotes the empty revision (no buckets).`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseRevisionArg(args[0])
			if err != nil {
				return err
			}
			comparisonID, err := parseRevisionArg(args[1])
			if err != nil {
				return err
			}
			return runDiff(cmd.Context(), rootOpts, revisionID, comparisonID, cmd)
		},
	}

	return cmd
}

func parseRevisionArg(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid revision %q: must be an integer", raw))
	}
	return n, nil
}

func runDiff(ctx context.Context, opts *RootOptions, revisionID, comparisonID int64, cmd *cobra.Command) error {
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

	states, err := s.Diff(ctx, revisionID, comparisonID)
	if err != nil {
		return WrapExitError(ExitCommandError, "diff revisions", err)
	}

	buckets := make(map[string]string, len(states))
	for name, state := range states {
		buckets[name] = string(state)
	}

	return outputDiffResult(formatter, DiffOutput{
		RevisionID:           revisionID,
		ComparisonRevisionID: comparisonID,
		Buckets:              buckets,
	})
}

func outputDiffResult(formatter *OutputFormatter, output DiffOutput) error {
	if formatter.Format == "json" {
		return formatter.Success(output)
	}

	names := make([]string, 0, len(output.Buckets))
	for name := range output.Buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(formatter.Writer, "diff %d..%d\n", output.ComparisonRevisionID, output.RevisionID)
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %-10s %s\n", output.Buckets[name], name)
	}
	return nil
}
