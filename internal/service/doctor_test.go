package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/service"
)

func TestDoctorFindsAndFixesStaleDueDates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sqldb := newTestDB(t)
	svc := service.New(sqldb, zap.NewNop(), service.Options{Now: func() time.Time { return testNow }})

	taxon := addTaxon(t, svc, "Hoya", "carnosa", "Wax Plant")
	_, err := svc.AddTaxonomy(ctx, service.TaxonomyInput{Family: "Apocynaceae", Genus: "Hoya", Species: "carnosa", Cultivar: ptr("Krimson Queen")})
	require.NoError(t, err)
	good := addSubject(t, svc, taxon.ID, "Good", "1 week", ptr(at(5, 1, 9)))
	stale := addSubject(t, svc, taxon.ID, "Stale", "1 week", ptr(at(5, 1, 9)))
	broken := addSubject(t, svc, taxon.ID, "Broken", "1 week", nil)

	_, err = sqldb.ExecContext(ctx, `UPDATE care_subjects SET fertilizer_due = ? WHERE id = ?`, db.FormatTime(at(6, 1, 9)), stale.ID)
	require.NoError(t, err)
	_, err = sqldb.ExecContext(ctx, `UPDATE care_subjects SET fertilizer_schedule = 'when dry' WHERE id = ?`, broken.ID)
	require.NoError(t, err)

	report, err := svc.RunDoctor(ctx, false)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.Equal(t, []int64{stale.ID}, report.StaleDueDates)
	assert.Equal(t, []int64{broken.ID}, report.UnparsableSchedules)
	assert.Equal(t, 1, report.DuplicateGroups)
	assert.Zero(t, report.OrphanSubjects)
	assert.Zero(t, report.FixedDueDates)

	report, err = svc.RunDoctor(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FixedDueDates)

	fixed, err := svc.GetSubject(ctx, stale.ID)
	require.NoError(t, err)
	assert.True(t, fixed.FertilizerDue.Equal(at(5, 8, 9)))

	report, err = svc.RunDoctor(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.StaleDueDates)

	untouched, err := svc.GetSubject(ctx, good.ID)
	require.NoError(t, err)
	assert.True(t, untouched.FertilizerDue.Equal(at(5, 8, 9)))
}
