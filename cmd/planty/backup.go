package planty

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/app"
	"github.com/fancyplanties/planty/internal/service"
)

var (
	backupOut    string
	restoreFile  string
	restoreForce bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and restore database backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a consistent copy of the database with a checksum",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			out := backupOut
			if out == "" {
				path, err := resolveDBPath()
				if err != nil {
					return err
				}
				out = app.DefaultBackupPath(path, time.Now())
			}
			info, err := svc.CreateBackup(ctx, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (sha256 %s, %d bytes)\n", info.Path, info.Checksum, info.SizeBytes)
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the database with a verified backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := app.EnsureDBDir(path); err != nil {
			return err
		}
		if err := service.RestoreBackup(restoreFile, path, restoreForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", path, restoreFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupRestoreCmd)
	backupCreateCmd.Flags().StringVar(&backupOut, "out", "", "Backup file path (default: backups/ next to the database)")
	backupRestoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup file to restore")
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite an existing database")
	_ = backupRestoreCmd.MarkFlagRequired("file")
}
