package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackadmin/internal/apperr"
	"trackadmin/internal/models"
)

type fakeStore struct {
	technicians map[int64]*models.Technician
	devices     map[int64]*models.Device
	logs        []models.VerificationLog
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		technicians: map[int64]*models.Technician{
			1: {ID: 1, Status: models.TechnicianActive},
		},
		devices: map[int64]*models.Device{
			42: {ID: 42, IMEI: "356938035643809"},
		},
		nextID: 1,
	}
}

func (f *fakeStore) TechnicianByID(_ context.Context, id int64) (*models.Technician, error) {
	return f.technicians[id], nil
}

func (f *fakeStore) DeviceByID(_ context.Context, id int64) (*models.Device, error) {
	return f.devices[id], nil
}

func (f *fakeStore) LastVerification(_ context.Context, technicianID, deviceID int64) (*models.VerificationLog, error) {
	var last *models.VerificationLog
	for i := range f.logs {
		l := &f.logs[i]
		if l.TechnicianID != technicianID || l.DeviceID != deviceID {
			continue
		}
		if last == nil || l.VerifiedAt.After(last.VerifiedAt) {
			last = l
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (f *fakeStore) InsertVerification(_ context.Context, entry *models.VerificationLog) error {
	entry.ID = f.nextID
	f.nextID++
	f.logs = append(f.logs, *entry)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordFirstVerificationCreates(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	rec := Recorder{Store: st, Now: fixedClock(t0)}

	res, err := rec.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, t0, res.Log.VerifiedAt)
	assert.NotEmpty(t, res.Log.Reference)
}

func TestRecordWithinGapReusesPriorRow(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	first, err := Recorder{Store: st, Now: fixedClock(t0)}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := Recorder{Store: st, Now: fixedClock(t0.Add(time.Hour))}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Log.ID, second.Log.ID)
	assert.Equal(t, first.Log.Reference, second.Log.Reference)
	assert.Len(t, st.logs, 1)
}

func TestRecordExactGapBoundaryCreates(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	first, err := Recorder{Store: st, Now: fixedClock(t0)}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)

	second, err := Recorder{Store: st, Now: fixedClock(t0.Add(TimeGap))}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.NotEqual(t, first.Log.ID, second.Log.ID)
}

func TestRecordAfterGapCreatesNewRow(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	first, err := Recorder{Store: st, Now: fixedClock(t0)}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	require.True(t, first.Created)

	reused, err := Recorder{Store: st, Now: fixedClock(t0.Add(time.Hour))}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.False(t, reused.Created)
	assert.Equal(t, first.Log.ID, reused.Log.ID)

	third, err := Recorder{Store: st, Now: fixedClock(t0.Add(5 * time.Hour))}.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.True(t, third.Created)
	assert.NotEqual(t, first.Log.ID, third.Log.ID)
	assert.Len(t, st.logs, 2)
}

func TestRecordDifferentPairsDoNotCollide(t *testing.T) {
	st := newFakeStore()
	st.devices[43] = &models.Device{ID: 43, IMEI: "356938035643810"}
	st.technicians[2] = &models.Technician{ID: 2, Status: models.TechnicianActive}
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	rec := Recorder{Store: st, Now: fixedClock(t0)}

	a, err := rec.Record(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	b, err := rec.Record(context.Background(), 1, 43, nil)
	require.NoError(t, err)
	c, err := rec.Record(context.Background(), 2, 42, nil)
	require.NoError(t, err)

	assert.True(t, a.Created)
	assert.True(t, b.Created)
	assert.True(t, c.Created)
	assert.Len(t, st.logs, 3)
}

func TestRecordPayloadAttachedOnlyToNewRows(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	lat, lon := 45.815, 15.982
	gps := t0.Add(-time.Minute)

	first, err := Recorder{Store: st, Now: fixedClock(t0)}.Record(context.Background(), 1, 42,
		&Payload{Latitude: &lat, Longitude: &lon, GPSTime: &gps, Notes: "antenna ok"})
	require.NoError(t, err)
	require.True(t, first.Created)
	assert.Equal(t, "antenna ok", first.Log.Notes)
	require.NotNil(t, first.Log.Latitude)
	assert.Equal(t, lat, *first.Log.Latitude)

	// Reused row keeps its original payload even when the repeat call
	// carries a different one.
	otherLat := 0.0
	second, err := Recorder{Store: st, Now: fixedClock(t0.Add(time.Hour))}.Record(context.Background(), 1, 42,
		&Payload{Latitude: &otherLat, Notes: "should be dropped"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "antenna ok", second.Log.Notes)
	assert.Equal(t, lat, *second.Log.Latitude)
}

func TestRecordUnknownTechnician(t *testing.T) {
	rec := Recorder{Store: newFakeStore()}

	_, err := rec.Record(context.Background(), 99, 42, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRecordUnknownDevice(t *testing.T) {
	rec := Recorder{Store: newFakeStore()}

	_, err := rec.Record(context.Background(), 1, 77, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRecordMissingDeviceID(t *testing.T) {
	rec := Recorder{Store: newFakeStore()}

	_, err := rec.Record(context.Background(), 1, 0, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
