package feed

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/testutil"
)

type fixture struct {
	feed  *Feed
	store *session.Store
	fb    *testutil.FakeBackend
	fake  *testutil.Faker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	store := session.NewStore(session.NewMemoryStorage(), nil)
	return &fixture{
		feed:  New(fb.NewAPI(t), store, nil),
		store: store,
		fb:    fb,
		fake:  testutil.NewFaker(42),
	}
}

func (fx *fixture) login(t *testing.T, donor domain.DonorProfile) {
	t.Helper()
	fx.fb.AddDonor(donor, "pw")
	require.NoError(t, fx.store.Login(context.Background(), donor.ID))
}

func TestMatch(t *testing.T) {
	donor := domain.DonorProfile{ID: "u1", BloodGroup: domain.OPositive, Phone: "01771111111", Gender: "male"}
	requests := []domain.BloodRequest{
		{ID: "r1", BloodGroup: domain.OPositive, Phone: "01771111111"},
		{ID: "r2", BloodGroup: domain.OPositive, Phone: "01991111111"},
		{ID: "r3", BloodGroup: domain.ANegative, Phone: "01881111111"},
	}

	matches := Match(donor, requests)
	require.Len(t, matches, 1)
	assert.Equal(t, "r2", matches[0].ID)
}

func TestMatch_Literal(t *testing.T) {
	donor := domain.DonorProfile{BloodGroup: domain.ONegative, Phone: "01771111111"}
	requests := []domain.BloodRequest{
		{ID: "a", BloodGroup: domain.APositive},
		{ID: "b", BloodGroup: domain.ABPositive},
		{ID: "c", BloodGroup: domain.ONegative, Phone: "+8801771111111"},
		{ID: "d", BloodGroup: domain.ONegative},
	}

	matches := Match(donor, requests)
	require.Len(t, matches, 1)
	assert.Equal(t, "d", matches[0].ID)
}

func TestMatch_NoGroup(t *testing.T) {
	matches := Match(domain.DonorProfile{}, []domain.BloodRequest{{ID: "r1"}})
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestLoad_RequiresSession(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.feed.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)
	assert.Equal(t, "No donor ID found. Please login first.", err.Error())
	assert.Zero(t, fx.fb.CallCount())
}

func TestLoad_Matches(t *testing.T) {
	fx := newFixture(t)
	donor := fx.fake.Donor("u1", domain.BPositive)
	fx.login(t, donor)

	own := fx.fb.AddRequest(fx.fake.Request(domain.BPositive, donor.Phone))
	match := fx.fb.AddRequest(fx.fake.Request(domain.BPositive, ""))
	fx.fb.AddRequest(fx.fake.Request(domain.ABNegative, ""))

	view, err := fx.feed.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, donor.Phone, view.Donor.Phone)
	assert.Len(t, view.Requests, 3)
	assert.False(t, view.ProfileIncomplete)
	require.Len(t, view.Matches, 1)
	assert.Equal(t, match.ID, view.Matches[0].ID)
	assert.NotEqual(t, own.ID, view.Matches[0].ID)

	assert.Equal(t, view, fx.feed.View())
	_, ok := fx.fb.LastCall(http.MethodGet, "/donors/u1")
	assert.True(t, ok)
}

func TestLoad_IncompleteProfile(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, domain.DonorProfile{ID: "u1", Phone: "01712345678"})
	fx.fb.AddRequest(fx.fake.Request(domain.OPositive, ""))

	view, err := fx.feed.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, view.ProfileIncomplete)
	assert.Nil(t, view.Matches)
	assert.Len(t, view.Requests, 1)
}

func TestLoad_FailureKeepsView(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.APositive))
	fx.fb.AddRequest(fx.fake.Request(domain.APositive, ""))

	first, err := fx.feed.Load(context.Background())
	require.NoError(t, err)

	fx.fb.Fail(http.MethodGet, "/requests", http.StatusInternalServerError, map[string]string{"error": "db down"})
	view, err := fx.feed.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Equal(t, "db down", err.Error())
	assert.Equal(t, first, view)

	fx.fb.Fail(http.MethodGet, "/requests", http.StatusInternalServerError, nil)
	_, err = fx.feed.Load(context.Background())
	assert.Equal(t, "Failed to load requests", err.Error())
}

func TestCompleteProfile(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, domain.DonorProfile{ID: "u1", Phone: "01712345678"})
	fx.fb.AddRequest(fx.fake.Request(domain.ABPositive, ""))

	_, err := fx.feed.Load(context.Background())
	require.NoError(t, err)

	view, err := fx.feed.CompleteProfile(context.Background(), ProfileInput{BloodGroup: "ab+", Gender: "Female"})
	require.NoError(t, err)
	assert.False(t, view.ProfileIncomplete)
	assert.Len(t, view.Matches, 1)

	stored, ok := fx.fb.Donor("u1")
	require.True(t, ok)
	assert.Equal(t, domain.ABPositive, stored.BloodGroup)
	assert.Equal(t, domain.GenderFemale, stored.Gender)
}

func TestCompleteProfile_Validation(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, domain.DonorProfile{ID: "u1", Phone: "01712345678"})

	tests := []struct {
		name  string
		in    ProfileInput
		field string
	}{
		{"missing group", ProfileInput{Gender: "male"}, "bloodGroup"},
		{"missing gender", ProfileInput{BloodGroup: "O+"}, "gender"},
		{"bad group", ProfileInput{BloodGroup: "O", Gender: "male"}, "bloodGroup"},
		{"bad gender", ProfileInput{BloodGroup: "O+", Gender: "unknown"}, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.feed.CompleteProfile(context.Background(), tt.in)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.CodeValidation, de.Code)
			assert.Equal(t, tt.field, de.Field)
		})
	}
	assert.Zero(t, fx.fb.CallCount())
}

func TestAccept(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.OPositive))
	req := fx.fb.AddRequest(fx.fake.Request(domain.OPositive, ""))

	_, err := fx.feed.Load(context.Background())
	require.NoError(t, err)
	fx.fb.ResetCalls()

	view, err := fx.feed.Accept(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, NoticeAccepted, view.Notice)
	require.Len(t, view.Matches, 1)
	assert.Equal(t, "accepted", view.Matches[0].Status)
	assert.Equal(t, []string{req.ID}, fx.fb.Accepted("u1"))

	calls := fx.fb.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/donors/u1/accept", calls[0].Path)
	assert.Equal(t, req.ID, calls[0].Body["requestId"])
	assert.Equal(t, "/requests", calls[1].Path)
}

func TestAccept_Multiple(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.OPositive))
	a := fx.fb.AddRequest(fx.fake.Request(domain.OPositive, ""))
	b := fx.fb.AddRequest(fx.fake.Request(domain.OPositive, ""))

	_, err := fx.feed.Accept(context.Background(), a.ID)
	require.NoError(t, err)
	_, err = fx.feed.Accept(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID, b.ID}, fx.fb.Accepted("u1"))
}

func TestAccept_FailureNoOptimisticUpdate(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.OPositive))
	req := fx.fb.AddRequest(fx.fake.Request(domain.OPositive, ""))

	before, err := fx.feed.Load(context.Background())
	require.NoError(t, err)

	fx.fb.Fail(http.MethodPost, "/donors/:id/accept", http.StatusInternalServerError, nil)
	view, err := fx.feed.Accept(context.Background(), req.ID)
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Equal(t, "Failed to add to queue", err.Error())
	assert.Equal(t, before, view)
	assert.Empty(t, fx.fb.Accepted("u1"))
}

func TestAccept_Validation(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.feed.Accept(context.Background(), "r1")
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)

	fx.login(t, fx.fake.Donor("u1", domain.OPositive))
	_, err = fx.feed.Accept(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, fx.fb.CallCount())
}

func TestRefresh_KeepsProfile(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.APositive))

	_, err := fx.feed.Load(context.Background())
	require.NoError(t, err)

	fx.fb.AddRequest(fx.fake.Request(domain.APositive, ""))
	fx.fb.ResetCalls()

	view, err := fx.feed.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, view.Matches, 1)

	calls := fx.fb.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/requests", calls[0].Path)
}

func TestNetworkError(t *testing.T) {
	fx := newFixture(t)
	fx.login(t, fx.fake.Donor("u1", domain.APositive))
	fx.fb.Close()

	_, err := fx.feed.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
