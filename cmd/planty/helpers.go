package planty

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fancyplanties/planty/internal/app"
	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/service"
)

func openStore(ctx context.Context) (*db.DB, error) {
	if cfg != nil && cfg.Database.Driver == string(db.DialectPostgres) {
		return db.OpenDialect(ctx, db.DialectPostgres, cfg.Database.DSN)
	}
	path, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return nil, err
	}
	return db.Open(path)
}

func withService(cmd *cobra.Command, run func(context.Context, *service.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := db.ApplyMigrations(ctx, store); err != nil {
		return err
	}
	opts := service.Options{}
	if cfg != nil {
		opts.SoonWindow = cfg.Care.SoonWindow()
		opts.RecentWindow = cfg.Care.RecentWindow()
		opts.MergeTimeout = cfg.Merge.Timeout
	}
	return run(ctx, service.New(store, logger, opts))
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg != nil && cfg.Database.DSN != "" {
		return cfg.Database.DSN, nil
	}
	return app.DefaultDBPath()
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func parseInt64Arg(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return v, nil
}

// parseDateTime reads --date and optional --time flags. Both empty yields the
// zero time so the service fills in now.
func parseDateTime(date, timeStr string) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.TrimSpace(timeStr)
	if date == "" && timeStr == "" {
		return time.Time{}, nil
	}
	if date == "" {
		return time.Time{}, fmt.Errorf("--date is required when --time is set")
	}
	if timeStr == "" {
		t, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--time (expected YYYY-MM-DD and HH:MM)")
	}
	return t, nil
}

func optionalDate(value string) (*time.Time, error) {
	t, err := parseDateTime(value, "")
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// changedString returns the flag value when the user set it, else nil.
func changedString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
