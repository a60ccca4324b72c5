package fetcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"mealreview/internal/mealapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	schoolA = &mealapi.School{ID: "A", Code: "7010569", OfficeCode: "B10", Name: "서울고등학교"}
	schoolB = &mealapi.School{ID: "B", Code: "7000001", OfficeCode: "B10", Name: "경기고등학교"}
	march10 = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	march11 = time.Date(2025, time.March, 11, 0, 0, 0, 0, time.Local)
)

// fakeAPI answers per school code. A school listed in gates blocks every call until
// its gate is closed; started is signalled on its first call. Data is read when a call
// arrives, before it blocks.
type fakeAPI struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started map[string]chan struct{}
	reviews map[string][]mealapi.Review
	stats   map[string]mealapi.Stats
	failOn  map[string]bool
	calls   map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		gates:   map[string]chan struct{}{},
		started: map[string]chan struct{}{},
		reviews: map[string][]mealapi.Review{},
		stats:   map[string]mealapi.Stats{},
		failOn:  map[string]bool{},
		calls:   map[string]int{},
	}
}

func (f *fakeAPI) gate(code string) (release func(), started <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	s := make(chan struct{})
	f.gates[code] = g
	f.started[code] = s
	return func() { close(g) }, s
}

func (f *fakeAPI) enter(endpoint, code string) error {
	f.mu.Lock()
	f.calls[endpoint]++
	g := f.gates[code]
	if s, ok := f.started[code]; ok {
		close(s)
		delete(f.started, code)
	}
	fail := f.failOn[endpoint]
	f.mu.Unlock()

	if g != nil {
		<-g
	}
	if fail {
		return mealapi.ErrNetwork
	}
	return nil
}

func (f *fakeAPI) GetMeals(_ context.Context, code, _ string, date time.Time) (mealapi.DailyMeal, error) {
	if err := f.enter("meals", code); err != nil {
		return mealapi.DailyMeal{}, err
	}
	return mealapi.DailyMeal{
		Date:  date.Format("2006-01-02"),
		Meals: []mealapi.Meal{{Type: mealapi.Lunch, Dishes: []string{code + " 급식"}}},
	}, nil
}

func (f *fakeAPI) GetReviews(_ context.Context, code, _ string, _ time.Time, _ *mealapi.MealType) ([]mealapi.Review, error) {
	f.mu.Lock()
	reviews := append([]mealapi.Review(nil), f.reviews[code]...)
	f.mu.Unlock()
	if err := f.enter("reviews", code); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (f *fakeAPI) GetSchoolStats(_ context.Context, code, _ string) (mealapi.Stats, error) {
	f.mu.Lock()
	stats := f.stats[code]
	f.mu.Unlock()
	if err := f.enter("stats", code); err != nil {
		return mealapi.Stats{}, err
	}
	return stats, nil
}

func (f *fakeAPI) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func TestLoad_CommitsAllThree(t *testing.T) {
	api := newFakeAPI()
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 1, MealType: mealapi.Lunch, Rating: 5}}
	api.stats[schoolA.Code] = mealapi.Stats{AverageRating: 4.33, ReviewCount: 3}
	f := New(api, zap.NewNop())

	var loadingSeen bool
	f.Subscribe(func(s Snapshot) {
		if s.Loading {
			loadingSeen = true
		}
	})

	f.Load(context.Background(), schoolA, march10)

	snap := f.Snapshot()
	assert.True(t, loadingSeen)
	assert.False(t, snap.Loading)
	assert.Equal(t, schoolA.Code, snap.School.Code)
	assert.Equal(t, "2025-03-10", snap.Meals.Date)
	require.Len(t, snap.Meals.Meals, 1)
	assert.Len(t, snap.Reviews, 1)
	assert.Equal(t, 4.33, snap.Stats.AverageRating)
}

func TestLoad_NoSchoolClearsWithoutRequests(t *testing.T) {
	api := newFakeAPI()
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 1}}
	f := New(api, nil)
	f.Load(context.Background(), schoolA, march10)
	calls := api.callCount("meals") + api.callCount("reviews") + api.callCount("stats")

	f.Load(context.Background(), nil, march10)

	snap := f.Snapshot()
	assert.Nil(t, snap.School)
	assert.Empty(t, snap.Meals.Meals)
	assert.Empty(t, snap.Reviews)
	assert.Equal(t, mealapi.Stats{}, snap.Stats)
	assert.False(t, snap.Loading)
	assert.Equal(t, calls, api.callCount("meals")+api.callCount("reviews")+api.callCount("stats"))
}

func TestLoad_PartialFailureIsFailOpen(t *testing.T) {
	api := newFakeAPI()
	api.failOn["reviews"] = true
	api.stats[schoolA.Code] = mealapi.Stats{AverageRating: 3, ReviewCount: 1}
	f := New(api, zap.NewNop())

	f.Load(context.Background(), schoolA, march10)

	snap := f.Snapshot()
	assert.False(t, snap.Loading)
	assert.NotNil(t, snap.Reviews)
	assert.Empty(t, snap.Reviews)
	assert.Len(t, snap.Meals.Meals, 1, "the other fetches still commit")
	assert.Equal(t, 1, snap.Stats.ReviewCount)
}

func TestLoad_LastRequestWins(t *testing.T) {
	api := newFakeAPI()
	api.stats[schoolA.Code] = mealapi.Stats{ReviewCount: 1}
	api.stats[schoolB.Code] = mealapi.Stats{ReviewCount: 2}
	release, started := api.gate(schoolA.Code)
	f := New(api, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Load(context.Background(), schoolA, march10)
	}()
	<-started

	f.Load(context.Background(), schoolB, march11)
	release()
	<-done

	snap := f.Snapshot()
	assert.Equal(t, schoolB.Code, snap.School.Code)
	assert.Equal(t, "2025-03-11", snap.Meals.Date)
	assert.Equal(t, []string{schoolB.Code + " 급식"}, snap.Meals.Meals[0].Dishes)
	assert.Equal(t, 2, snap.Stats.ReviewCount)
	assert.False(t, snap.Loading)
}

func TestRefresh(t *testing.T) {
	api := newFakeAPI()
	f := New(api, nil)
	f.Load(context.Background(), schoolA, march10)
	require.Empty(t, f.Snapshot().Reviews)

	api.mu.Lock()
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 9, MealType: mealapi.Dinner, Rating: 4}}
	api.stats[schoolA.Code] = mealapi.Stats{AverageRating: 4, ReviewCount: 1}
	api.mu.Unlock()

	f.Refresh(context.Background(), schoolA, march10)

	snap := f.Snapshot()
	assert.Len(t, snap.Reviews, 1)
	assert.Equal(t, 1, snap.Stats.ReviewCount)
	assert.Equal(t, 1, api.callCount("meals"), "refresh leaves meals alone")
}

func TestRefresh_DroppedWhenNotCurrent(t *testing.T) {
	api := newFakeAPI()
	f := New(api, nil)
	f.Load(context.Background(), schoolB, march11)

	f.Refresh(context.Background(), schoolA, march10)
	assert.Equal(t, 1, api.callCount("reviews"), "stale refresh issues no request")

	// A refresh overtaken by a new load is discarded on completion.
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 1}}
	f.Load(context.Background(), schoolA, march10)
	release, started := api.gate(schoolA.Code)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Refresh(context.Background(), schoolA, march10)
	}()
	<-started
	api.mu.Lock()
	delete(api.gates, schoolA.Code)
	api.mu.Unlock()
	f.Load(context.Background(), nil, march10)
	release()
	<-done

	snap := f.Snapshot()
	assert.Nil(t, snap.School)
	assert.Empty(t, snap.Reviews)
}

func TestRefresh_DuringLoadIsKept(t *testing.T) {
	api := newFakeAPI()
	release, started := api.gate(schoolA.Code)
	f := New(api, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Load(context.Background(), schoolA, march10)
	}()
	<-started
	require.Eventually(t, func() bool {
		return api.callCount("reviews") == 1 && api.callCount("stats") == 1
	}, time.Second, time.Millisecond)

	// The load has already read the old reviews; a write lands and refreshes.
	api.mu.Lock()
	delete(api.gates, schoolA.Code)
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 5, MealType: mealapi.Lunch, Rating: 5}}
	api.stats[schoolA.Code] = mealapi.Stats{AverageRating: 5, ReviewCount: 1}
	api.mu.Unlock()
	f.Refresh(context.Background(), schoolA, march10)

	release()
	<-done

	snap := f.Snapshot()
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Meals.Meals, 1)
	require.Len(t, snap.Reviews, 1)
	assert.Equal(t, int64(5), snap.Reviews[0].ID)
	assert.Equal(t, 1, snap.Stats.ReviewCount)
}

func TestStatsFor(t *testing.T) {
	api := newFakeAPI()
	api.reviews[schoolA.Code] = []mealapi.Review{
		{MealType: mealapi.Lunch, Rating: 4},
		{MealType: mealapi.Lunch, Rating: 2},
		{MealType: mealapi.Dinner, Rating: 5},
	}
	api.stats[schoolA.Code] = mealapi.Stats{AverageRating: 4.8, ReviewCount: 120}
	f := New(api, nil)
	f.Load(context.Background(), schoolA, march10)

	assert.Equal(t, MealStats{Average: 3.0, Count: 2}, f.StatsFor(mealapi.Lunch))
	assert.Equal(t, MealStats{Average: 5, Count: 1}, f.StatsFor(mealapi.Dinner))
	assert.Equal(t, MealStats{}, f.StatsFor(mealapi.Breakfast))

	// The school-wide figure is reported separately and left untouched.
	assert.Equal(t, 4.8, f.Snapshot().Stats.AverageRating)
}

func TestSnapshotIsACopy(t *testing.T) {
	api := newFakeAPI()
	api.reviews[schoolA.Code] = []mealapi.Review{{ID: 1, Rating: 3}}
	f := New(api, nil)
	f.Load(context.Background(), schoolA, march10)

	snap := f.Snapshot()
	snap.Reviews[0].Rating = 1
	snap.School.Code = "changed"
	assert.Equal(t, 3, f.Snapshot().Reviews[0].Rating)
	assert.Equal(t, schoolA.Code, f.Snapshot().School.Code)
}
