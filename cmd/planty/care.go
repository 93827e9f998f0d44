package planty

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/service"
)

var careCmd = &cobra.Command{
	Use:   "care",
	Short: "Log and review plant care",
}

var (
	careType           string
	careDate           string
	careTime           string
	careFertilizerType string
	carePotSize        string
	careSoilType       string
	careNotes          string
	careSince          string
	careLimit          int
	careJSON           bool
)

var careLogCmd = &cobra.Command{
	Use:   "log <plant-id>",
	Short: "Log a care event (fertilizer, water, repot, prune, inspect, other)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plant id", args[0])
		if err != nil {
			return err
		}
		eventType, err := model.ParseCareEventType(careType)
		if err != nil {
			return err
		}
		performed, err := parseDateTime(careDate, careTime)
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			res, err := svc.LogCare(ctx, service.CareInput{
				SubjectID:      id,
				Type:           eventType,
				PerformedAt:    performed,
				FertilizerType: careFertilizerType,
				PotSize:        carePotSize,
				SoilType:       careSoilType,
				Notes:          careNotes,
			})
			if err != nil {
				return err
			}
			if careJSON {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s for %q (next fertilizer: %s)\n",
				res.Event.Type, res.Subject.Nickname, formatOptionalTime(res.Subject.FertilizerDue))
			return nil
		})
	},
}

var careListCmd = &cobra.Command{
	Use:   "list [plant-id]",
	Short: "List care events, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := service.CareEventFilter{Limit: careLimit}
		if len(args) == 1 {
			id, err := parseInt64Arg("plant id", args[0])
			if err != nil {
				return err
			}
			filter.SubjectID = id
		}
		since, err := optionalDate(careSince)
		if err != nil {
			return err
		}
		filter.Since = since
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			events, err := svc.ListCareEvents(ctx, filter)
			if err != nil {
				return err
			}
			if careJSON {
				return printJSON(cmd, events)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tPLANT\tTYPE\tWHEN\tDETAILS")
			for _, e := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t%s\t%s\n", e.ID, e.SubjectID, e.Type, e.PerformedAt.Format("2006-01-02 15:04"), careDetails(e))
			}
			return nil
		})
	},
}

func careDetails(e model.CareEvent) string {
	switch {
	case e.FertilizerType != "":
		return e.FertilizerType
	case e.PotSize != "" || e.SoilType != "":
		return e.PotSize + " " + e.SoilType
	default:
		return e.Notes
	}
}

func init() {
	rootCmd.AddCommand(careCmd)
	careCmd.AddCommand(careLogCmd, careListCmd)

	careLogCmd.Flags().StringVar(&careType, "type", "", "Event type")
	careLogCmd.Flags().StringVar(&careDate, "date", "", "Date (YYYY-MM-DD), default now")
	careLogCmd.Flags().StringVar(&careTime, "time", "", "Time (HH:MM)")
	careLogCmd.Flags().StringVar(&careFertilizerType, "fertilizer", "", "Fertilizer used")
	careLogCmd.Flags().StringVar(&carePotSize, "pot-size", "", "New pot size (repot)")
	careLogCmd.Flags().StringVar(&careSoilType, "soil", "", "Soil mix (repot)")
	careLogCmd.Flags().StringVar(&careNotes, "notes", "", "Notes")
	_ = careLogCmd.MarkFlagRequired("type")

	careListCmd.Flags().StringVar(&careSince, "since", "", "Only events on or after this date (YYYY-MM-DD)")
	careListCmd.Flags().IntVar(&careLimit, "limit", 50, "Maximum events (0 for all)")
	for _, c := range []*cobra.Command{careLogCmd, careListCmd} {
		c.Flags().BoolVar(&careJSON, "json", false, "Output JSON")
	}
}
