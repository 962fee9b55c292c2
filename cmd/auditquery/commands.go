package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/diff"
	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
	"github.com/AntonStoeckl/auditstore-go/auditstore/query"
)

func newSnapshotsCmd(a *app) *cobra.Command {
	var params paramFlags
	var valueObjectType string

	cmd := &cobra.Command{
		Use:   "snapshots [global-id]",
		Short: "Print snapshots as JSON lines, newest first",
		Long:  "Print the snapshots of one object, or of all objects when no global id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, valueObjectType, &params)
			if err != nil {
				return err
			}

			runner, err := a.runner(false)
			if err != nil {
				return err
			}

			snapshots, err := runner.QueryForSnapshots(cmd.Context(), q)
			if err != nil {
				return err
			}

			return writeSnapshots(cmd.OutOrStdout(), snapshots)
		},
	}

	addParamFlags(cmd, &params)
	cmd.Flags().StringVar(&valueObjectType, flagValueObjectType, "", "type name of the value object a global id refers to")

	return cmd
}

func newChangesCmd(a *app) *cobra.Command {
	var params paramFlags
	var valueObjectType string
	var newObjectChanges bool

	cmd := &cobra.Command{
		Use:   "changes [global-id]",
		Short: "Print changes, one per line, newest first",
		Long:  "Print the changes of one object, or of all objects when no global id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, valueObjectType, &params)
			if err != nil {
				return err
			}

			runner, err := a.runner(newObjectChanges)
			if err != nil {
				return err
			}

			changes, err := runner.QueryForChanges(cmd.Context(), q.WithNewObjectChanges(newObjectChanges))
			if err != nil {
				return err
			}

			return writeChanges(cmd.OutOrStdout(), changes)
		},
	}

	addParamFlags(cmd, &params)
	cmd.Flags().StringVar(&valueObjectType, flagValueObjectType, "", "type name of the value object a global id refers to")
	cmd.Flags().BoolVar(&newObjectChanges, flagNewObjectChange, false, "include NewObject changes and initial values")

	return cmd
}

func newLatestCmd(a *app) *cobra.Command {
	var valueObjectType string
	var eventual bool

	cmd := &cobra.Command{
		Use:   "latest <global-id>",
		Short: "Print the latest snapshot of an object as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := auditstore.ParseGlobalID(args[0], valueObjectType)
			if err != nil {
				return err
			}

			runner, err := a.runner(false)
			if err != nil {
				return err
			}

			ctx := auditstore.WithStrongConsistency(cmd.Context())
			if eventual {
				ctx = auditstore.WithEventualConsistency(cmd.Context())
			}

			snapshot, err := runner.QueryForLatestSnapshot(ctx, identity.GlobalIDDTO{ID: id})
			if err != nil {
				return err
			}

			if snapshot == nil {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "no snapshot of %s\n", id.Value())
				return err
			}

			return writeSnapshots(cmd.OutOrStdout(), []auditstore.CdoSnapshot{*snapshot})
		},
	}

	cmd.Flags().StringVar(&valueObjectType, flagValueObjectType, "", "type name of the value object the global id refers to")
	cmd.Flags().BoolVar(&eventual, flagEventual, false, "allow the replica or the cache to answer")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var params paramFlags
	var valueObjectType string

	cmd := &cobra.Command{
		Use:   "history <global-id>",
		Short: "Print the version history of an object as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, valueObjectType, &params)
			if err != nil {
				return err
			}

			runner, err := a.runner(false)
			if err != nil {
				return err
			}

			snapshots, err := runner.QueryForSnapshots(cmd.Context(), q)
			if err != nil {
				return err
			}

			return writeHistory(cmd.OutOrStdout(), snapshots)
		},
	}

	addParamFlags(cmd, &params)
	cmd.Flags().StringVar(&valueObjectType, flagValueObjectType, "", "type name of the value object the global id refers to")

	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the snapshot table and its indexes if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend == nil || a.backend.migrate == nil {
				return ErrBackendNotOpen
			}

			if err := a.backend.migrate(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "snapshot table %s is ready\n", a.cfg.Postgres.Table)

			return err
		},
	}
}

// buildQuery selects one object when args holds a global id, any object otherwise.
func buildQuery(args []string, valueObjectType string, flags *paramFlags) (query.Query, error) {
	params, err := flags.queryParams()
	if err != nil {
		return query.Query{}, err
	}

	if len(args) == 0 {
		return query.AnyDomainObject().WithParams(params), nil
	}

	id, err := auditstore.ParseGlobalID(args[0], valueObjectType)
	if err != nil {
		return query.Query{}, err
	}

	return query.ByGlobalID(id).WithParams(params), nil
}

func writeSnapshots(w io.Writer, snapshots []auditstore.CdoSnapshot) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)

	for _, snapshot := range snapshots {
		if err := encoder.Encode(auditstore.SnapshotToRecord(snapshot)); err != nil {
			return err
		}
	}

	return nil
}

// writeChanges prefixes each change with its commit, if known.
func writeChanges(w io.Writer, changes diff.Changes) error {
	for _, change := range changes {
		line := change.String()
		if commit, ok := change.Commit(); ok {
			line = fmt.Sprintf("%s %s %s %s", commit.CommitDate.UTC().Format(time.RFC3339), commit.ID, commit.Author, line)
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

func writeHistory(w io.Writer, snapshots []auditstore.CdoSnapshot) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(table, "VERSION\tTYPE\tCOMMIT DATE\tAUTHOR\tCHANGED")

	for _, snapshot := range snapshots {
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%s\n",
			snapshot.Version,
			snapshot.Type,
			snapshot.Commit.CommitDate.UTC().Format(time.RFC3339),
			snapshot.Commit.Author,
			strings.Join(snapshot.ChangedProperties, ","),
		)
	}

	return table.Flush()
}
