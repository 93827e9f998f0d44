package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/service"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local planty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			target := "postgres database"
			if cfg == nil || cfg.Database.Driver != "postgres" {
				path, err := resolveDBPath()
				if err != nil {
					return err
				}
				target = path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized planty database at %s\n", target)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
