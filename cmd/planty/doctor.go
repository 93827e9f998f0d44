package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/service"
)

var (
	doctorFix  bool
	doctorJSON bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database integrity and fertilizer due dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			report, err := svc.RunDoctor(ctx, doctorFix)
			if err != nil {
				return err
			}
			if doctorFix && report.FixedDueDates > 0 {
				fixed := report.FixedDueDates
				if report, err = svc.RunDoctor(ctx, false); err != nil {
					return err
				}
				report.FixedDueDates = fixed
			}
			if doctorJSON {
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report)
			}
			if !report.Healthy() {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		})
	},
}

func printDoctorReport(cmd *cobra.Command, r service.DoctorReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Orphan plants: %d\n", r.OrphanSubjects)
	fmt.Fprintf(out, "Orphan propagations: %d\n", r.OrphanPropagations)
	fmt.Fprintf(out, "Unparsable schedules: %d %v\n", len(r.UnparsableSchedules), r.UnparsableSchedules)
	fmt.Fprintf(out, "Stale due dates: %d %v\n", len(r.StaleDueDates), r.StaleDueDates)
	fmt.Fprintf(out, "Duplicate taxonomy groups: %d\n", r.DuplicateGroups)
	if r.FixedDueDates > 0 {
		fmt.Fprintf(out, "Fixed due dates: %d\n", r.FixedDueDates)
	}
	if r.Healthy() {
		fmt.Fprintln(out, "OK")
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Recompute stale fertilizer due dates")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
}
