package access

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
	technicians  map[int64]*models.Technician
	restrictions map[int64][]models.ImeiRestriction
	tagItems     map[int64][]models.TagItem
}

func (f *fakeStore) TechnicianByID(_ context.Context, id int64) (*models.Technician, error) {
	return f.technicians[id], nil
}

func (f *fakeStore) RestrictionsByTechnician(_ context.Context, technicianID int64) ([]models.ImeiRestriction, error) {
	var active []models.ImeiRestriction
	for _, r := range f.restrictions[technicianID] {
		if r.Status == models.RestrictionActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (f *fakeStore) TagItemsByTag(_ context.Context, tagID int64) ([]models.TagItem, error) {
	return f.tagItems[tagID], nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		technicians: map[int64]*models.Technician{
			1: {ID: 1, Status: models.TechnicianActive},
		},
		restrictions: map[int64][]models.ImeiRestriction{},
		tagItems:     map[int64][]models.TagItem{},
	}
}

func i64(v int64) *int64 { return &v }

func TestCheckDefaultAllowWithoutRestrictions(t *testing.T) {
	r := Resolver{Store: newFakeStore()}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
	assert.Empty(t, dec.RestrictionReason)
}

func TestCheckUnknownTechnician(t *testing.T) {
	r := Resolver{Store: newFakeStore()}

	_, err := r.Check(context.Background(), 99, 42, time.Now())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCheckDisabledTechnician(t *testing.T) {
	st := newFakeStore()
	st.technicians[2] = &models.Technician{ID: 2, Status: models.TechnicianDisabled}
	r := Resolver{Store: st}

	_, err := r.Check(context.Background(), 2, 42, time.Now())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCheckPermanentDenyOnDevice(t *testing.T) {
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			Priority: 10, IsPermanent: true, Reason: "stolen unit",
			Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.False(t, dec.HasAccess)
	assert.Equal(t, "stolen unit", dec.RestrictionReason)
}

func TestCheckDenyWithoutReasonUsesGenericMessage(t *testing.T) {
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			IsPermanent: true, Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.False(t, dec.HasAccess)
	assert.Equal(t, GenericDenialMessage, dec.RestrictionReason)
}

func TestCheckInactiveRuleIgnored(t *testing.T) {
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			IsPermanent: true, Status: models.RestrictionInactive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckRuleForOtherDeviceIgnored(t *testing.T) {
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(7), AccessType: models.AccessDeny,
			IsPermanent: true, Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckHighestPriorityWins(t *testing.T) {
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			Priority: 5, IsPermanent: true, Reason: "low priority deny",
			Status: models.RestrictionActive},
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessAllow,
			Priority: 20, IsPermanent: true, Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckDeviceScopeBeatsTagScopeOnTie(t *testing.T) {
	st := newFakeStore()
	st.tagItems[3] = []models.TagItem{
		{TagID: 3, EntityType: models.TagEntityDevice, EntityID: 42},
	}
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, TagID: i64(3), AccessType: models.AccessAllow,
			Priority: 10, IsPermanent: true, Status: models.RestrictionActive},
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			Priority: 10, IsPermanent: true, Reason: "device rule",
			Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.False(t, dec.HasAccess)
	assert.Equal(t, "device rule", dec.RestrictionReason)
}

func TestCheckNewestRuleWinsOnFullTie(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			Priority: 10, IsPermanent: true, Status: models.RestrictionActive,
			CreatedAt: older},
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessAllow,
			Priority: 10, IsPermanent: true, Status: models.RestrictionActive,
			CreatedAt: newer},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckExpiredRuleNeverSelected(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	st := newFakeStore()
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
			Priority: 100, IsPermanent: false, ValidUntil: &past,
			Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, now)
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckValidityWindowBounds(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	cases := []struct {
		name       string
		validFrom  *time.Time
		validUntil *time.Time
		denied     bool
	}{
		{"inside window", &from, &until, true},
		{"before window", &until, nil, false},
		{"open start", nil, &until, true},
		{"open end", &from, nil, true},
		{"no bounds", nil, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newFakeStore()
			st.restrictions[1] = []models.ImeiRestriction{
				{TechnicianID: 1, DeviceID: i64(42), AccessType: models.AccessDeny,
					IsPermanent: false, ValidFrom: tc.validFrom, ValidUntil: tc.validUntil,
					Status: models.RestrictionActive},
			}
			r := Resolver{Store: st}

			dec, err := r.Check(context.Background(), 1, 42, now)
			require.NoError(t, err)
			assert.Equal(t, !tc.denied, dec.HasAccess)
		})
	}
}

func TestCheckTagMembershipOfOtherEntityTypesIgnored(t *testing.T) {
	st := newFakeStore()
	// Tag contains a technician with the same entity id as the device.
	st.tagItems[3] = []models.TagItem{
		{TagID: 3, EntityType: models.TagEntityTechnician, EntityID: 42},
	}
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, TagID: i64(3), AccessType: models.AccessDeny,
			IsPermanent: true, Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.HasAccess)
}

func TestCheckTagDenyApplies(t *testing.T) {
	st := newFakeStore()
	st.tagItems[3] = []models.TagItem{
		{TagID: 3, EntityType: models.TagEntityDevice, EntityID: 42},
	}
	st.restrictions[1] = []models.ImeiRestriction{
		{TechnicianID: 1, TagID: i64(3), AccessType: models.AccessDeny,
			IsPermanent: true, Reason: "fleet under recall",
			Status: models.RestrictionActive},
	}
	r := Resolver{Store: st}

	dec, err := r.Check(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.False(t, dec.HasAccess)
	assert.Equal(t, "fleet under recall", dec.RestrictionReason)
}
