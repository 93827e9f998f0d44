package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/service"
)

var dashboardJSON bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show which plants need fertilizer and recent care",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			d, err := svc.Dashboard(ctx)
			if err != nil {
				return err
			}
			if dashboardJSON {
				return printJSON(cmd, d)
			}
			out := cmd.OutOrStdout()
			c := d.Stats.Counts
			fmt.Fprintf(out, "Active plants: %d\n", d.Stats.ActiveSubjects)
			fmt.Fprintf(out, "Overdue: %d  Due today: %d  Due soon: %d  Healthy: %d\n", c.Overdue, c.DueToday, c.DueSoon, c.Healthy)
			fmt.Fprintf(out, "Fertilizer streak: %d day(s)\n", d.Stats.FertilizerStreak)
			if len(d.Subjects) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "ID\tNICKNAME\tSTATUS\tDUE")
				for _, s := range d.Subjects {
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", s.SubjectID, s.Nickname, s.Bucket, formatOptionalTime(s.DueAt))
				}
			}
			if len(d.Stats.RecentlyCared) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Recently cared for:")
				for _, r := range d.Stats.RecentlyCared {
					fmt.Fprintf(out, "  %s (%s)\n", r.Nickname, r.LastCaredAt.Format("2006-01-02 15:04"))
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "Output JSON")
}
