package planty

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/retry"
	"github.com/fancyplanties/planty/internal/service"
	"github.com/fancyplanties/planty/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:     "taxonomy",
	Aliases: []string{"taxon"},
	Short:   "Manage the plant taxonomy catalog",
}

var (
	taxonFamily     string
	taxonGenus      string
	taxonSpecies    string
	taxonCultivar   string
	taxonCommonName string
	taxonVerified   bool
	taxonUnverify   bool
	taxonClearCv    bool
	taxonJSON       bool
	taxonLimit      int
	taxonOffset     int
	taxonFile       string
)

var taxonomyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a taxonomy record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			rec, err := svc.AddTaxonomy(ctx, service.TaxonomyInput{
				Family:     taxonFamily,
				Genus:      taxonGenus,
				Species:    taxonSpecies,
				Cultivar:   changedString(cmd, "cultivar", taxonCultivar),
				CommonName: taxonCommonName,
				Verified:   taxonVerified,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added taxonomy %d: %s\n", rec.ID, describeTaxon(rec))
			return nil
		})
	},
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List taxonomy records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			records, err := svc.ListTaxonomy(ctx)
			if err != nil {
				return err
			}
			if taxonJSON {
				return printJSON(cmd, records)
			}
			printTaxa(cmd, records)
			return nil
		})
	},
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one taxonomy record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("taxonomy id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			rec, err := svc.GetTaxonomy(ctx, id)
			if err != nil {
				return err
			}
			if taxonJSON {
				return printJSON(cmd, rec)
			}
			printTaxa(cmd, []model.TaxonomyRecord{rec})
			return nil
		})
	},
}

var taxonomyUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a taxonomy record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("taxonomy id", args[0])
		if err != nil {
			return err
		}
		if taxonVerified && taxonUnverify {
			return fmt.Errorf("--verified and --unverified are mutually exclusive")
		}
		upd := service.TaxonomyUpdate{
			Family:        changedString(cmd, "family", taxonFamily),
			Genus:         changedString(cmd, "genus", taxonGenus),
			Species:       changedString(cmd, "species", taxonSpecies),
			Cultivar:      changedString(cmd, "cultivar", taxonCultivar),
			ClearCultivar: taxonClearCv,
			CommonName:    changedString(cmd, "common-name", taxonCommonName),
		}
		switch {
		case taxonVerified:
			v := true
			upd.Verified = &v
		case taxonUnverify:
			v := false
			upd.Verified = &v
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			rec, err := svc.UpdateTaxonomy(ctx, id, upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated taxonomy %d: %s\n", rec.ID, describeTaxon(rec))
			return nil
		})
	},
}

var taxonomyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an unreferenced taxonomy record; use merge for referenced ones",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("taxonomy id", args[0])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			if err := svc.DeleteTaxonomy(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted taxonomy %d\n", id)
			return nil
		})
	},
}

var taxonomySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the taxonomy catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			page, err := svc.SearchTaxonomy(ctx, query, taxonLimit, taxonOffset)
			if err != nil {
				return err
			}
			if taxonJSON {
				return printJSON(cmd, page)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SCORE\tID\tNAME\tCOMMON NAME\tVERIFIED")
			for _, m := range page.Matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t%s\t%t\n", m.Score, m.Record.ID, scientificName(m.Record), m.Record.CommonName, m.Record.Verified)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d matches\n", len(page.Matches), page.Total)
			return nil
		})
	},
}

var taxonomyDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List taxonomy records that share genus and species",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			groups, err := svc.FindDuplicateTaxonomy(ctx)
			if err != nil {
				return err
			}
			if taxonJSON {
				return printJSON(cmd, groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No duplicate taxonomy records")
				return nil
			}
			for _, g := range groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", g.Genus, g.Species)
				for _, m := range g.Members {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d\t%s\t%s\tsubjects=%d\tpropagations=%d\n",
						m.Record.ID, scientificName(m.Record), m.Record.CommonName, m.Refs.Subjects, m.Refs.Propagations)
				}
			}
			return nil
		})
	},
}

var taxonomyMergeCmd = &cobra.Command{
	Use:   "merge <source-id> <target-id>",
	Short: "Move everything referencing source onto target and delete source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceID, err := parseInt64Arg("source id", args[0])
		if err != nil {
			return err
		}
		targetID, err := parseInt64Arg("target id", args[1])
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			rcfg := retry.DefaultConfig()
			if cfg != nil {
				rcfg.MaxRetries = cfg.Merge.Retries
			}
			var res taxonomy.MergeResult
			attempt := 0
			err := retry.Do(ctx, rcfg, func(err error) bool {
				return errors.Is(err, taxonomy.ErrTransactionFailed)
			}, func() error {
				attempt++
				var mergeErr error
				res, mergeErr = svc.MergeTaxonomy(ctx, sourceID, targetID)
				if mergeErr != nil && attempt <= rcfg.MaxRetries && errors.Is(mergeErr, taxonomy.ErrTransactionFailed) {
					logger.Warn("retrying taxonomy merge", zap.Int("attempt", attempt), zap.Error(mergeErr))
				}
				return mergeErr
			})
			if err != nil {
				return err
			}
			if taxonJSON {
				return printJSON(cmd, res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged taxonomy %d into %d (%d subjects, %d propagations reassigned)\n",
				res.SourceID, res.TargetID, res.SubjectsReassigned, res.PropagationsReassigned)
			return nil
		})
	},
}

var taxonomyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a YAML taxonomy catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if taxonFile == "" {
			return fmt.Errorf("--file is required")
		}
		f, err := os.Open(taxonFile)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			report, err := svc.ImportTaxonomy(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported catalog: %d created, %d updated\n", report.Created, report.Updated)
			return nil
		})
	},
}

var taxonomyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the taxonomy catalog as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			if taxonFile == "" {
				_, err := svc.ExportTaxonomy(ctx, cmd.OutOrStdout())
				return err
			}
			f, err := os.Create(taxonFile)
			if err != nil {
				return fmt.Errorf("create catalog file: %w", err)
			}
			defer f.Close()
			n, err := svc.ExportTaxonomy(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d taxonomy records to %s\n", n, taxonFile)
			return nil
		})
	},
}

func scientificName(r model.TaxonomyRecord) string {
	name := r.BinomialName()
	if c := r.CultivarName(); c != "" {
		name += " '" + c + "'"
	}
	return name
}

func describeTaxon(r model.TaxonomyRecord) string {
	if r.CommonName == "" {
		return scientificName(r)
	}
	return fmt.Sprintf("%s (%s)", scientificName(r), r.CommonName)
}

func printTaxa(cmd *cobra.Command, records []model.TaxonomyRecord) {
	fmt.Fprintln(cmd.OutOrStdout(), "ID\tFAMILY\tNAME\tCOMMON NAME\tVERIFIED")
	for _, r := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%t\n", r.ID, r.Family, scientificName(r), r.CommonName, r.Verified)
	}
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyAddCmd, taxonomyListCmd, taxonomyShowCmd, taxonomyUpdateCmd, taxonomyDeleteCmd,
		taxonomySearchCmd, taxonomyDuplicatesCmd, taxonomyMergeCmd, taxonomyImportCmd, taxonomyExportCmd)

	for _, c := range []*cobra.Command{taxonomyAddCmd, taxonomyUpdateCmd} {
		c.Flags().StringVar(&taxonFamily, "family", "", "Family, e.g. Araceae")
		c.Flags().StringVar(&taxonGenus, "genus", "", "Genus, e.g. Monstera")
		c.Flags().StringVar(&taxonSpecies, "species", "", "Species epithet, e.g. deliciosa")
		c.Flags().StringVar(&taxonCultivar, "cultivar", "", "Cultivar name")
		c.Flags().StringVar(&taxonCommonName, "common-name", "", "Common name")
		c.Flags().BoolVar(&taxonVerified, "verified", false, "Mark the record as verified")
	}
	_ = taxonomyAddCmd.MarkFlagRequired("family")
	_ = taxonomyAddCmd.MarkFlagRequired("genus")
	_ = taxonomyAddCmd.MarkFlagRequired("species")
	taxonomyUpdateCmd.Flags().BoolVar(&taxonUnverify, "unverified", false, "Clear the verified flag")
	taxonomyUpdateCmd.Flags().BoolVar(&taxonClearCv, "clear-cultivar", false, "Remove the cultivar")

	for _, c := range []*cobra.Command{taxonomyListCmd, taxonomyShowCmd, taxonomySearchCmd, taxonomyDuplicatesCmd, taxonomyMergeCmd} {
		c.Flags().BoolVar(&taxonJSON, "json", false, "Output JSON")
	}
	taxonomySearchCmd.Flags().IntVar(&taxonLimit, "limit", 20, "Maximum matches to show (0 for all)")
	taxonomySearchCmd.Flags().IntVar(&taxonOffset, "offset", 0, "Matches to skip")
	taxonomyImportCmd.Flags().StringVar(&taxonFile, "file", "", "Catalog YAML file")
	taxonomyExportCmd.Flags().StringVar(&taxonFile, "file", "", "Write to file instead of stdout")
}
