package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/service"
)

func TestAddSubjectValidatesSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Ficus", "elastica", "Rubber Plant")

	for _, schedule := range []string{"", "every week", "0 days", "2 fortnights"} {
		_, err := svc.AddSubject(ctx, service.SubjectInput{TaxonomyID: taxon.ID, Nickname: "Rubber", FertilizerSchedule: schedule})
		require.ErrorIs(t, err, care.ErrUnparsableSchedule, "schedule %q", schedule)
	}

	_, err := svc.AddSubject(ctx, service.SubjectInput{TaxonomyID: 777, Nickname: "Ghost", FertilizerSchedule: "1 week"})
	require.ErrorIs(t, err, service.ErrNotFound)

	subjects, err := svc.ListSubjects(ctx, service.SubjectFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestAddSubjectComputesFirstDueDate(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Ficus", "elastica", "Rubber Plant")

	never := addSubject(t, svc, taxon.ID, "Fresh", "10 Days", nil)
	assert.Nil(t, never.LastFertilized)
	assert.Nil(t, never.FertilizerDue)
	assert.True(t, never.Active)

	last := at(1, 31, 9)
	monthly := addSubject(t, svc, taxon.ID, "Monthly", "1Month", &last)
	require.NotNil(t, monthly.FertilizerDue)
	assert.True(t, monthly.FertilizerDue.Equal(at(2, 28, 9)), "got %s", monthly.FertilizerDue)
}

func TestAddSubjectRejectsDueDatesOutsideStorableRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Ficus", "elastica", "Rubber Plant")
	now := testNow

	_, err := svc.AddSubject(ctx, service.SubjectInput{TaxonomyID: taxon.ID, Nickname: "Huge", FertilizerSchedule: "100000 months", LastFertilized: &now})
	require.ErrorIs(t, err, care.ErrUnparsableSchedule)

	farFuture := time.Date(9950, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.AddSubject(ctx, service.SubjectInput{TaxonomyID: taxon.ID, Nickname: "Late", FertilizerSchedule: "1200 months", LastFertilized: &farFuture})
	require.ErrorIs(t, err, care.ErrUnparsableSchedule)

	tooFar := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.AddSubject(ctx, service.SubjectInput{TaxonomyID: taxon.ID, Nickname: "Later", FertilizerSchedule: "1 week", LastFertilized: &tooFar})
	require.ErrorIs(t, err, db.ErrTimeOutOfRange)

	sub := addSubject(t, svc, taxon.ID, "Century", "1200 months", nil)
	_, err = svc.LogCare(ctx, service.CareInput{SubjectID: sub.ID, Type: model.CareFertilizer, PerformedAt: farFuture})
	require.ErrorIs(t, err, care.ErrUnparsableSchedule)

	subjects, err := svc.ListSubjects(ctx, service.SubjectFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Nil(t, subjects[0].LastFertilized)

	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	report, err := svc.RunDoctor(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
}

func TestUpdateSubjectRecomputesDueOnScheduleChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Ficus", "elastica", "Rubber Plant")
	other := addTaxon(t, svc, "Ficus", "lyrata", "Fiddle Leaf Fig")

	last := at(5, 1, 8)
	sub := addSubject(t, svc, taxon.ID, "Rubber", "1 week", &last)
	require.True(t, sub.FertilizerDue.Equal(at(5, 8, 8)))

	updated, err := svc.UpdateSubject(ctx, sub.ID, service.SubjectUpdate{
		FertilizerSchedule: ptr("3 weeks"),
		Location:           ptr("Bedroom"),
		TaxonomyID:         &other.ID,
	})
	require.NoError(t, err)
	assert.True(t, updated.FertilizerDue.Equal(at(5, 22, 8)))
	assert.Equal(t, "Bedroom", updated.Location)
	assert.Equal(t, other.ID, updated.TaxonomyID)

	_, err = svc.UpdateSubject(ctx, sub.ID, service.SubjectUpdate{FertilizerSchedule: ptr("sometimes")})
	require.ErrorIs(t, err, care.ErrUnparsableSchedule)

	_, err = svc.UpdateSubject(ctx, sub.ID, service.SubjectUpdate{TaxonomyID: ptr(int64(999))})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeactivateAndPurgeSubject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Ficus", "elastica", "Rubber Plant")
	keep := addSubject(t, svc, taxon.ID, "Keep", "1 week", nil)
	gone := addSubject(t, svc, taxon.ID, "Gone", "1 week", nil)

	_, err := svc.LogCare(ctx, service.CareInput{SubjectID: gone.ID, Type: model.CareWater, PerformedAt: at(5, 9, 8)})
	require.NoError(t, err)
	prop, err := svc.AddPropagation(ctx, service.PropagationInput{TaxonomyID: taxon.ID, ParentSubjectID: &gone.ID, Nickname: "pup"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateSubject(ctx, keep.ID))
	active, err := svc.ListSubjects(ctx, service.SubjectFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, gone.ID, active[0].ID)

	require.NoError(t, svc.PurgeSubject(ctx, gone.ID))
	_, err = svc.GetSubject(ctx, gone.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	events, err := svc.ListCareEvents(ctx, service.CareEventFilter{SubjectID: gone.ID})
	require.NoError(t, err)
	assert.Empty(t, events)

	orphaned, err := svc.GetPropagation(ctx, prop.ID)
	require.NoError(t, err)
	assert.Nil(t, orphaned.ParentSubjectID)

	require.ErrorIs(t, svc.PurgeSubject(ctx, gone.ID), service.ErrNotFound)
	require.ErrorIs(t, svc.DeactivateSubject(ctx, 12345), service.ErrNotFound)
}
