package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reflexhq/reflex/internal/playbook"
)

// PlaybookSummary is the listing row for one playbook.
type PlaybookSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Builtin  bool   `json:"builtin"`
	Triggers int    `json:"triggers"`
	Actions  int    `json:"actions"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored playbooks",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database")

	return cmd
}

func runList(opts *RootOptions, database string, cmd *cobra.Command) error {
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

	pbs, err := st.ListPlaybooks(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list playbooks", err)
	}

	if opts.Format == "json" {
		summaries := make([]PlaybookSummary, 0, len(pbs))
		for _, pb := range pbs {
			summaries = append(summaries, summarize(pb))
		}
		return formatter.Success(summaries)
	}

	if len(pbs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No playbooks.")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-28s %-30s %-8s %-8s %s\n", "ID", "NAME", "ENABLED", "BUILTIN", "TRIGGERS/ACTIONS")
	for _, pb := range pbs {
		s := summarize(pb)
		fmt.Fprintf(&b, "%-28s %-30s %-8v %-8v %d/%d\n",
			s.ID, s.Name, s.Enabled, s.Builtin, s.Triggers, s.Actions)
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}

func summarize(pb playbook.Playbook) PlaybookSummary {
	return PlaybookSummary{
		ID:       pb.ID,
		Name:     pb.Name,
		Enabled:  pb.Enabled,
		Builtin:  pb.IsBuiltin,
		Triggers: len(pb.Triggers),
		Actions:  len(pb.Actions),
	}
}

// NewEnableCommand creates the enable command.
func NewEnableCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:           "enable <playbook-id>",
		Short:         "Enable a stored playbook",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(rootOpts, database, args[0], true, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database")
	return cmd
}

// NewDisableCommand creates the disable command.
func NewDisableCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:           "disable <playbook-id>",
		Short:         "Disable a stored playbook",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(rootOpts, database, args[0], false, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database")
	return cmd
}

func runSetEnabled(opts *RootOptions, database, id string, enabled bool, cmd *cobra.Command) error {
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

	if err := st.SetEnabled(cmd.Context(), id, enabled, time.Now()); err != nil {
		if outErr := formatter.Error(ErrCodeStore, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "failed to update playbook", err)
	}

	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	return formatter.Success(fmt.Sprintf("playbook %s %s", id, verb))
}
