package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/service"
)

var propagationCmd = &cobra.Command{
	Use:     "propagation",
	Aliases: []string{"prop"},
	Short:   "Track cuttings, divisions and other propagations",
}

var (
	propTaxonomyID     int64
	propParentID       int64
	propNickname       string
	propLocation       string
	propSource         string
	propExternalSource string
	propSourceDetails  string
	propDate           string
	propNotes          string
	propStatus         string
	propSchedule       string
	propAll            bool
	propJSON           bool
)

var propagationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Start a propagation",
	RunE: func(cmd *cobra.Command, args []string) error {
		started, err := parseDateTime(propDate, "")
		if err != nil {
			return err
		}
		in := service.PropagationInput{
			TaxonomyID:     propTaxonomyID,
			Nickname:       propNickname,
			Location:       propLocation,
			Source:         propSource,
			ExternalSource: propExternalSource,
			SourceDetails:  propSourceDetails,
			StartedAt:      started,
			Notes:          propNotes,
		}
		if cmd.Flags().Changed("parent") {
			in.ParentSubjectID = &propParentID
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			p, err := svc.AddPropagation(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added propagation %d %q (%s, %s)\n", p.ID, p.Nickname, p.Source, p.Status)
			return nil
		})
	},
}

var propagationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List propagations",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := service.PropagationFilter{IncludeInactive: propAll}
		if propStatus != "" {
			status, err := model.ParsePropagationStatus(propStatus)
			if err != nil {
				return err
			}
			filter.Status = status
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			props, err := svc.ListPropagations(ctx, filter)
			if err != nil {
				return err
			}
			if propJSON {
				return printJSON(cmd, props)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNICKNAME\tTAXONOMY\tSTATUS\tSOURCE\tSTARTED\tACTIVE")
			for _, p := range props {
				source := string(p.Source)
				if p.ExternalSource != "" {
					source += "/" + string(p.ExternalSource)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\t%s\t%s\t%s\t%t\n",
					p.ID, p.Nickname, p.TaxonomyID, p.Status, source, p.StartedAt.Format("2006-01-02"), p.Active)
			}
			return nil
		})
	},
}

var propagationAdvanceCmd = &cobra.Command{
	Use:   "advance <id> <status>",
	Short: "Move a propagation forward (rooting, planted, established)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("propagation id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			p, err := svc.AdvancePropagation(ctx, id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Propagation %d is now %s\n", p.ID, p.Status)
			return nil
		})
	},
}

var propagationDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Mark a propagation as abandoned",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("propagation id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			if err := svc.DeactivatePropagation(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated propagation %d\n", id)
			return nil
		})
	},
}

var propagationPromoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Turn an established propagation into a plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("propagation id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			res, err := svc.PromotePropagation(ctx, id, propSchedule)
			if err != nil {
				return err
			}
			if propJSON {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Promoted propagation %d to plant %d %q\n", id, res.Subject.ID, res.Subject.Nickname)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(propagationCmd)
	propagationCmd.AddCommand(propagationAddCmd, propagationListCmd, propagationAdvanceCmd, propagationDeactivateCmd, propagationPromoteCmd)

	propagationAddCmd.Flags().Int64Var(&propTaxonomyID, "taxonomy", 0, "Taxonomy record id")
	propagationAddCmd.Flags().Int64Var(&propParentID, "parent", 0, "Parent plant id (internal source only)")
	propagationAddCmd.Flags().StringVar(&propNickname, "nickname", "", "Nickname")
	propagationAddCmd.Flags().StringVar(&propLocation, "location", "", "Location")
	propagationAddCmd.Flags().StringVar(&propSource, "source", "", "internal (default) or external")
	propagationAddCmd.Flags().StringVar(&propExternalSource, "external-source", "", "gift, trade, purchase or other (external propagations only)")
	propagationAddCmd.Flags().StringVar(&propSourceDetails, "source-details", "", "Free-form source details")
	propagationAddCmd.Flags().StringVar(&propDate, "date", "", "Start date (YYYY-MM-DD), default today")
	propagationAddCmd.Flags().StringVar(&propNotes, "notes", "", "Notes")
	_ = propagationAddCmd.MarkFlagRequired("taxonomy")
	_ = propagationAddCmd.MarkFlagRequired("nickname")

	propagationListCmd.Flags().StringVar(&propStatus, "status", "", "Only propagations in this status")
	propagationListCmd.Flags().BoolVar(&propAll, "all", false, "Include inactive propagations")

	propagationPromoteCmd.Flags().StringVar(&propSchedule, "schedule", "", `Fertilizer schedule for the new plant, e.g. "1 month"`)
	_ = propagationPromoteCmd.MarkFlagRequired("schedule")

	for _, c := range []*cobra.Command{propagationListCmd, propagationPromoteCmd} {
		c.Flags().BoolVar(&propJSON, "json", false, "Output JSON")
	}
}
