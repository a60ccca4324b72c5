package reconciler

import (
	"context"
	"sync"
	"testing"

	"mealreview/internal/mealapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var seoulHigh = mealapi.School{ID: "7010569", Code: "7010569", OfficeCode: "B10", Name: "서울고등학교", Address: "서울특별시 서초구"}

type fakeAPI struct {
	mu        sync.Mutex
	schools   []mealapi.School
	searchErr error
	updateErr error
	searches  []string
	updates   []string
}

func (f *fakeAPI) SearchSchools(_ context.Context, name string) ([]mealapi.School, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, name)
	return f.schools, f.searchErr
}

func (f *fakeAPI) UpdateUserSchool(_ context.Context, _ string, code, office, name string) (*mealapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, code)
	return &mealapi.User{ID: 1, SchoolCode: code, OfficeCode: office, SchoolName: name}, nil
}

func (f *fakeAPI) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func withSchool(code string) *mealapi.User {
	u := &mealapi.User{ID: 1, Email: "a@example.com", Name: "A"}
	if code != "" {
		u.SchoolCode, u.OfficeCode, u.SchoolName = code, "B10", "서울고등학교"
	}
	return u
}

func TestInitialState(t *testing.T) {
	r := New(&fakeAPI{}, nil)
	assert.Equal(t, Unresolved, r.State())
	assert.Nil(t, r.Selected())
	assert.False(t, r.DialogOpen())

	r.Observe(context.Background(), nil)
	assert.Equal(t, NoUser, r.State())
}

func TestTransientMissingSchoolIsIgnored(t *testing.T) {
	api := &fakeAPI{schools: []mealapi.School{{Code: "7010570", OfficeCode: "B10", Name: "서울고등학교 분교"}, seoulHigh}}
	r := New(api, zap.NewNop())
	ctx := context.Background()

	var dialogEverOpened bool
	r.Subscribe(func(ev Event) {
		if ev.DialogOpen {
			dialogEverOpened = true
		}
	})

	r.Observe(ctx, withSchool("7010569"))
	require.Equal(t, SchoolSet, r.State())
	assert.Equal(t, &seoulHigh, r.Selected())
	assert.Equal(t, []string{"서울고등학교"}, api.searches)

	r.Observe(ctx, withSchool(""))
	assert.Equal(t, SchoolTransientMissing, r.State())
	assert.False(t, r.DialogOpen())
	assert.Equal(t, &seoulHigh, r.Selected(), "the rendered school stays")

	r.Observe(ctx, withSchool("7010569"))
	assert.Equal(t, SchoolSet, r.State())
	assert.False(t, dialogEverOpened)
	assert.Equal(t, 1, api.searchCount(), "same code as last processed must not be looked up again")
}

func TestNoSchoolRequiresSelection(t *testing.T) {
	api := &fakeAPI{}
	r := New(api, nil)
	ctx := context.Background()

	var states []State
	r.Subscribe(func(ev Event) { states = append(states, ev.State) })

	r.Observe(ctx, withSchool(""))
	assert.Equal(t, MustSelect, r.State())
	assert.True(t, r.DialogOpen())

	assert.False(t, r.CloseDialog(), "closing before a choice is a no-op")
	assert.True(t, r.DialogOpen())
	assert.Equal(t, MustSelect, r.State())

	// Repeated polls do not re-emit.
	r.Observe(ctx, withSchool(""))
	assert.Equal(t, []State{MustSelect}, states)
	assert.Zero(t, api.searchCount())

	user, err := r.Select(ctx, "tok", seoulHigh)
	require.NoError(t, err)
	assert.Equal(t, "7010569", user.SchoolCode)
	assert.Equal(t, SchoolSet, r.State())
	assert.False(t, r.DialogOpen())
	assert.Equal(t, []string{"7010569"}, api.updates)

	// The server now reports the chosen code: already processed, so no lookup.
	r.Observe(ctx, withSchool("7010569"))
	assert.Zero(t, api.searchCount())
}

func TestSelectFailureKeepsState(t *testing.T) {
	api := &fakeAPI{updateErr: &mealapi.APIError{Status: 500}}
	r := New(api, nil)
	ctx := context.Background()

	r.Observe(ctx, withSchool(""))
	_, err := r.Select(ctx, "tok", seoulHigh)
	require.Error(t, err)
	assert.Equal(t, MustSelect, r.State())
	assert.True(t, r.DialogOpen())
	assert.Nil(t, r.Selected())
}

func TestLookupFailure(t *testing.T) {
	for name, api := range map[string]*fakeAPI{
		"no matching code": {schools: []mealapi.School{{Code: "7000001", OfficeCode: "B10"}}},
		"search error":     {searchErr: mealapi.ErrNetwork},
		"office mismatch":  {schools: []mealapi.School{{Code: "7010569", OfficeCode: "J10"}}},
	} {
		t.Run(name, func(t *testing.T) {
			r := New(api, zap.NewNop())
			ctx := context.Background()

			r.Observe(ctx, withSchool("7010569"))
			assert.Equal(t, SchoolUnset, r.State())
			assert.Nil(t, r.Selected())
			assert.False(t, r.DialogOpen(), "a failed lookup does not reopen the dialog")

			r.Observe(ctx, withSchool("7010569"))
			assert.Equal(t, 1, api.searchCount(), "no retry loop on the same code")
		})
	}
}

func TestSchoolChangeTriggersLookup(t *testing.T) {
	other := mealapi.School{Code: "7000001", OfficeCode: "B10", Name: "서울고등학교"}
	api := &fakeAPI{schools: []mealapi.School{seoulHigh, other}}
	r := New(api, nil)
	ctx := context.Background()

	r.Observe(ctx, withSchool("7010569"))
	r.Observe(ctx, withSchool("7000001"))
	assert.Equal(t, SchoolSet, r.State())
	assert.Equal(t, "7000001", r.Selected().Code)
	assert.Equal(t, 2, api.searchCount())
}

func TestLogoutResetsMarker(t *testing.T) {
	api := &fakeAPI{schools: []mealapi.School{seoulHigh}}
	r := New(api, nil)
	ctx := context.Background()

	r.Observe(ctx, withSchool("7010569"))
	r.Observe(ctx, nil)
	assert.Equal(t, NoUser, r.State())

	// The next login is fresh: same code, new lookup.
	r.Observe(ctx, withSchool("7010569"))
	assert.Equal(t, SchoolSet, r.State())
	assert.Equal(t, 2, api.searchCount())

	// And a fresh login without a school is gated again, not treated as transient.
	r.Observe(ctx, nil)
	r.Observe(ctx, withSchool(""))
	assert.Equal(t, MustSelect, r.State())
}

func TestSettingsDialog(t *testing.T) {
	r := New(&fakeAPI{schools: []mealapi.School{seoulHigh}}, nil)
	r.Observe(context.Background(), withSchool("7010569"))

	r.OpenSettings()
	assert.True(t, r.DialogOpen())
	assert.True(t, r.CloseDialog())
	assert.False(t, r.DialogOpen())
	assert.False(t, r.CloseDialog())
}

func TestAdoptedOnlyOnNewSelection(t *testing.T) {
	api := &fakeAPI{schools: []mealapi.School{seoulHigh}}
	r := New(api, nil)
	ctx := context.Background()

	var adopted []bool
	r.Subscribe(func(ev Event) { adopted = append(adopted, ev.Adopted) })

	r.Observe(ctx, withSchool("7010569"))
	r.Observe(ctx, withSchool(""))
	r.Observe(ctx, withSchool("7010569"))
	r.OpenSettings()
	r.CloseDialog()
	_, err := r.Select(ctx, "tok", seoulHigh)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false, false, false, true}, adopted)
}

func TestUnsubscribe(t *testing.T) {
	r := New(&fakeAPI{}, nil)
	calls := 0
	unsubscribe := r.Subscribe(func(Event) { calls++ })
	r.Observe(context.Background(), nil)
	unsubscribe()
	r.Observe(context.Background(), withSchool(""))
	assert.Equal(t, 1, calls)
}
