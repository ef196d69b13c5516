package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reflexhq/reflex/internal/playbook"
)

// ExecutionSummary is the listing row for one execution record.
type ExecutionSummary struct {
	ID          string `json:"id"`
	PlaybookID  string `json:"playbook_id"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	Actions     int    `json:"actions"`
	Failed      int    `json:"failed_actions"`
	Error       string `json:"error,omitempty"`
}

// NewExecutionsCommand creates the executions command.
func NewExecutionsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		database   string
		playbookID string
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:           "executions",
		Short:         "List execution history, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecutions(rootOpts, database, playbookID, limit, offset, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&playbookID, "playbook", "", "only executions of this playbook")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to return (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip for pagination")

	return cmd
}

func runExecutions(opts *RootOptions, database, playbookID string, limit, offset int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts, database)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	execs, err := st.ListExecutions(cmd.Context(), playbookID, limit, offset)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list executions", err)
	}

	summaries := make([]ExecutionSummary, 0, len(execs))
	for _, exec := range execs {
		summaries = append(summaries, summarizeExecution(exec))
	}

	if opts.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No executions.")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-24s %-10s %-26s %s\n", "ID", "PLAYBOOK", "STATUS", "STARTED", "ACTIONS")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-38s %-24s %-10s %-26s %d (%d failed)\n",
			s.ID, s.PlaybookID, s.Status, s.StartedAt, s.Actions, s.Failed)
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}

func summarizeExecution(exec playbook.Execution) ExecutionSummary {
	s := ExecutionSummary{
		ID:         exec.ID,
		PlaybookID: exec.PlaybookID,
		Status:     string(exec.Status),
		StartedAt:  exec.StartedAt.Format("2006-01-02 15:04:05"),
		Actions:    len(exec.ActionResults),
		Error:      exec.Error,
	}
	if exec.CompletedAt != nil {
		s.CompletedAt = exec.CompletedAt.Format("2006-01-02 15:04:05")
	}
	if exec.TriggeredBy != nil {
		s.Trigger = string(exec.TriggeredBy.TriggerType())
	}
	for _, r := range exec.ActionResults {
		if !r.Success {
			s.Failed++
		}
	}
	return s
}
