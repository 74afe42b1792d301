package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/cobra"
)

// autoSnapshot copies the database aside before a mutating command.
func autoSnapshot(ctx context.Context, db *storage.SQLiteStorage, prefix string) error {
	if db.Path() == storage.MemoryPath {
		return nil
	}
	mgr, err := storage.NewSnapshotManager(db)
	if err != nil {
		return err
	}
	snap, err := mgr.AutoSnapshot(ctx, prefix)
	if err != nil {
		return err
	}
	common.LogDebug("automatic snapshot", common.Fields{"id": snap.ID})
	return nil
}

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage database snapshots",
		Long: `Snapshots are consistent copies of the database kept next to it. ingest takes one
automatically before merging; the most recent automatic snapshots are kept.`,
		RunE: runSnapshotsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		RunE:  runSnapshotsList,
	})

	create := &cobra.Command{
		Use:   "create [id]",
		Short: "Snapshot the database now",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return withSnapshots(cmd, func(mgr *storage.SnapshotManager) error {
				snap, err := mgr.Create(cmd.Context(), id, description, false)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created snapshot %s (%d contracts)", snap.ID, snap.Contracts)))
				return err
			})
		},
	}
	create.Flags().StringP("description", "d", "", "note stored with the snapshot")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(mgr *storage.SnapshotManager) error {
				if err := mgr.Restore(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Restored snapshot "+args[0]))
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(mgr *storage.SnapshotManager) error {
				if err := mgr.Delete(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted snapshot "+args[0]))
				return err
			})
		},
	})

	return cmd
}

func withSnapshots(cmd *cobra.Command, fn func(*storage.SnapshotManager) error) error {
	db, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	// Restore closes the storage itself; a second Close is harmless.
	defer func() { _ = db.Close() }()

	mgr, err := storage.NewSnapshotManager(db)
	if err != nil {
		return err
	}
	return fn(mgr)
}

func runSnapshotsList(cmd *cobra.Command, _ []string) error {
	return withSnapshots(cmd, func(mgr *storage.SnapshotManager) error {
		snaps, err := mgr.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			_, err = fmt.Fprintln(out, cli.FormatInfo("No snapshots in "+mgr.Dir()))
			return err
		}

		rows := make([][]string, 0, len(snaps))
		for _, s := range snaps {
			kind := "manual"
			if s.IsAuto {
				kind = "auto"
			}
			rows = append(rows, []string{
				s.ID,
				s.CreatedAt.Local().Format("2006-01-02 15:04"),
				kind,
				fmt.Sprintf("%d", s.Contracts),
				fmt.Sprintf("%d", s.Runs),
				s.Description,
			})
		}
		_, _ = fmt.Fprintln(out, cli.FormatTitle("Snapshots")+"\n"+cli.SubtitleStyle.Render(mgr.Dir()))
		_, err = fmt.Fprintln(out, cli.RenderTable([]string{"ID", "Created", "Kind", "Contracts", "Runs", "Description"}, rows))
		return err
	})
}
