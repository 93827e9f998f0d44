package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fancyplanties/planty/internal/model"
	"github.com/fancyplanties/planty/internal/service"
)

func TestLogCareAdvancesFertilizerDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Calathea", "orbifolia", "Prayer Plant")
	sub := addSubject(t, svc, taxon.ID, "Orbi", "2 weeks", nil)

	res, err := svc.LogCare(ctx, service.CareInput{
		SubjectID:      sub.ID,
		Type:           "Fertilizer",
		PerformedAt:    at(5, 1, 9),
		FertilizerType: "20-20-20",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CareFertilizer, res.Event.Type)
	assert.Equal(t, "20-20-20", res.Event.FertilizerType)
	require.NotNil(t, res.Subject.LastFertilized)
	assert.True(t, res.Subject.LastFertilized.Equal(at(5, 1, 9)))
	assert.True(t, res.Subject.FertilizerDue.Equal(at(5, 15, 9)))

	// An older fertilizer event is recorded but does not move the due date back.
	res, err = svc.LogCare(ctx, service.CareInput{SubjectID: sub.ID, Type: model.CareFertilizer, PerformedAt: at(4, 20, 9)})
	require.NoError(t, err)
	assert.True(t, res.Subject.LastFertilized.Equal(at(5, 1, 9)))
	assert.True(t, res.Subject.FertilizerDue.Equal(at(5, 15, 9)))

	res, err = svc.LogCare(ctx, service.CareInput{SubjectID: sub.ID, Type: model.CareRepot, PotSize: "6in", SoilType: "aroid mix"})
	require.NoError(t, err)
	assert.True(t, res.Event.PerformedAt.Equal(testNow), "zero time defaults to now")
	assert.True(t, res.Subject.FertilizerDue.Equal(at(5, 15, 9)))

	events, err := svc.ListCareEvents(ctx, service.CareEventFilter{SubjectID: sub.ID})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.CareRepot, events[0].Type)
	assert.True(t, events[2].PerformedAt.Equal(at(4, 20, 9)))

	since := at(4, 25, 0)
	recent, err := svc.ListCareEvents(ctx, service.CareEventFilter{SubjectID: sub.ID, Since: &since, Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.CareRepot, recent[0].Type)
}

func TestLogCareRejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	taxon := addTaxon(t, svc, "Calathea", "orbifolia", "Prayer Plant")
	sub := addSubject(t, svc, taxon.ID, "Orbi", "2 weeks", nil)

	_, err := svc.LogCare(ctx, service.CareInput{SubjectID: sub.ID, Type: "mist"})
	require.ErrorIs(t, err, model.ErrInvalidCareEventType)

	_, err = svc.LogCare(ctx, service.CareInput{SubjectID: 999, Type: model.CareWater})
	require.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, svc.DeactivateSubject(ctx, sub.ID))
	_, err = svc.LogCare(ctx, service.CareInput{SubjectID: sub.ID, Type: model.CareWater})
	require.ErrorContains(t, err, "inactive")

	events, err := svc.ListCareEvents(ctx, service.CareEventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}
