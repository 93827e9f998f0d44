package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/service"
)

var plantCmd = &cobra.Command{
	Use:   "plant",
	Short: "Manage the plants you care for",
}

var (
	plantTaxonomyID     int64
	plantNickname       string
	plantLocation       string
	plantSchedule       string
	plantLastFertilized string
	plantNotes          string
	plantAll            bool
	plantJSON           bool
)

var plantAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a plant",
	RunE: func(cmd *cobra.Command, args []string) error {
		last, err := optionalDate(plantLastFertilized)
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			sub, err := svc.AddSubject(ctx, service.SubjectInput{
				TaxonomyID:         plantTaxonomyID,
				Nickname:           plantNickname,
				Location:           plantLocation,
				FertilizerSchedule: plantSchedule,
				LastFertilized:     last,
				Notes:              plantNotes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added plant %d %q (next fertilizer: %s)\n", sub.ID, sub.Nickname, formatOptionalTime(sub.FertilizerDue))
			return nil
		})
	},
}

var plantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plants",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			subjects, err := svc.ListSubjects(ctx, service.SubjectFilter{IncludeInactive: plantAll, TaxonomyID: plantTaxonomyID})
			if err != nil {
				return err
			}
			if plantJSON {
				return printJSON(cmd, subjects)
			}
			printSubjects(cmd, subjects)
			return nil
		})
	},
}

var plantShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plant id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			sub, err := svc.GetSubject(ctx, id)
			if err != nil {
				return err
			}
			if plantJSON {
				return printJSON(cmd, sub)
			}
			printSubjects(cmd, []model.CareSubject{sub})
			return nil
		})
	},
}

var plantUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plant id", args[0])
		if err != nil {
			return err
		}
		upd := service.SubjectUpdate{
			Nickname:           changedString(cmd, "nickname", plantNickname),
			Location:           changedString(cmd, "location", plantLocation),
			FertilizerSchedule: changedString(cmd, "schedule", plantSchedule),
			Notes:              changedString(cmd, "notes", plantNotes),
		}
		if cmd.Flags().Changed("taxonomy") {
			upd.TaxonomyID = &plantTaxonomyID
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			sub, err := svc.UpdateSubject(ctx, id, upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated plant %d %q (next fertilizer: %s)\n", sub.ID, sub.Nickname, formatOptionalTime(sub.FertilizerDue))
			return nil
		})
	},
}

var plantDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Retire a plant but keep its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plant id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			if err := svc.DeactivateSubject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated plant %d\n", id)
			return nil
		})
	},
}

var plantPurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a plant and its care log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plant id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			if err := svc.PurgeSubject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged plant %d\n", id)
			return nil
		})
	},
}

func printSubjects(cmd *cobra.Command, subjects []model.CareSubject) {
	fmt.Fprintln(cmd.OutOrStdout(), "ID\tNICKNAME\tTAXONOMY\tLOCATION\tSCHEDULE\tLAST FERTILIZED\tDUE\tACTIVE")
	for _, s := range subjects {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%t\n",
			s.ID, s.Nickname, s.TaxonomyID, s.Location, s.FertilizerSchedule,
			formatOptionalTime(s.LastFertilized), formatOptionalTime(s.FertilizerDue), s.Active)
	}
}

func init() {
	rootCmd.AddCommand(plantCmd)
	plantCmd.AddCommand(plantAddCmd, plantListCmd, plantShowCmd, plantUpdateCmd, plantDeactivateCmd, plantPurgeCmd)

	for _, c := range []*cobra.Command{plantAddCmd, plantUpdateCmd} {
		c.Flags().Int64Var(&plantTaxonomyID, "taxonomy", 0, "Taxonomy record id")
		c.Flags().StringVar(&plantNickname, "nickname", "", "Plant nickname")
		c.Flags().StringVar(&plantLocation, "location", "", "Where the plant lives")
		c.Flags().StringVar(&plantSchedule, "schedule", "", `Fertilizer schedule, e.g. "2 weeks"`)
		c.Flags().StringVar(&plantNotes, "notes", "", "Notes")
	}
	plantAddCmd.Flags().StringVar(&plantLastFertilized, "last-fertilized", "", "Last fertilized date (YYYY-MM-DD)")
	_ = plantAddCmd.MarkFlagRequired("taxonomy")
	_ = plantAddCmd.MarkFlagRequired("nickname")
	_ = plantAddCmd.MarkFlagRequired("schedule")

	plantListCmd.Flags().Int64Var(&plantTaxonomyID, "taxonomy", 0, "Only plants of this taxonomy id")
	plantListCmd.Flags().BoolVar(&plantAll, "all", false, "Include deactivated plants")
	for _, c := range []*cobra.Command{plantListCmd, plantShowCmd} {
		c.Flags().BoolVar(&plantJSON, "json", false, "Output JSON")
	}
}
