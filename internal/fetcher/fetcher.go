// Package fetcher loads the meals, reviews and school statistics for a (school, date)
// pair. The most recent request wins; late results of superseded requests are dropped.
package fetcher

import (
	"context"
	"sync"
	"time"

	"mealreview/internal/datecursor"
	"mealreview/internal/mealapi"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the read surface the fetcher needs.
type API interface {
	GetMeals(ctx context.Context, code, office string, date time.Time) (mealapi.DailyMeal, error)
	GetReviews(ctx context.Context, code, office string, date time.Time, mealType *mealapi.MealType) ([]mealapi.Review, error)
	GetSchoolStats(ctx context.Context, code, office string) (mealapi.Stats, error)
}

// Snapshot is a copy of the fetcher state; callers may keep and modify it.
type Snapshot struct {
	School  *mealapi.School
	Date    time.Time
	Meals   mealapi.DailyMeal
	Reviews []mealapi.Review
	Stats   mealapi.Stats
	Loading bool
}

// MealStats is derived from the loaded day's reviews of one meal type.
type MealStats struct {
	Average float64
	Count   int
}

type key struct {
	code, office, day string
}

func keyOf(school *mealapi.School, date time.Time) key {
	if school == nil {
		return key{day: datecursor.Compact(date)}
	}
	return key{code: school.Code, office: school.OfficeCode, day: datecursor.Compact(date)}
}

type Fetcher struct {
	api    API
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	refresh uint64
	// refreshed counts committed refreshes.
	refreshed uint64
	current   key
	state     Snapshot
	subs      map[int]func(Snapshot)
	nextSub   int
}

func New(api API, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		api:    api,
		logger: logger,
		state:  emptyState(nil, time.Time{}),
		subs:   map[int]func(Snapshot){},
	}
}

func emptyState(school *mealapi.School, date time.Time) Snapshot {
	return Snapshot{
		School:  school,
		Date:    date,
		Meals:   mealapi.DailyMeal{Date: datecursor.Format(date), Meals: []mealapi.Meal{}},
		Reviews: []mealapi.Review{},
	}
}

// Load replaces the state with the data for (school, date). A nil school clears the
// state without any request. The three fetches run concurrently and are committed
// together; each one that fails is logged and committed as empty.
func (f *Fetcher) Load(ctx context.Context, school *mealapi.School, date time.Time) {
	date = datecursor.Day(date)

	f.mu.Lock()
	f.gen++
	gen, refreshed := f.gen, f.refreshed
	f.current = keyOf(school, date)
	if school == nil {
		f.state = emptyState(nil, date)
		f.publishAndUnlock()
		return
	}
	s := *school
	f.state.School = &s
	f.state.Date = date
	f.state.Loading = true
	f.publishAndUnlock()

	var (
		meals   = mealapi.DailyMeal{Date: datecursor.Format(date), Meals: []mealapi.Meal{}}
		reviews = []mealapi.Review{}
		stats   mealapi.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		got, err := f.api.GetMeals(gctx, s.Code, s.OfficeCode, date)
		if err != nil {
			f.logger.Warn("Failed to load meals", zap.String("school_code", s.Code), zap.Error(err))
			return nil
		}
		meals = got
		return nil
	})
	g.Go(func() error {
		reviews = f.fetchReviews(gctx, s, date)
		return nil
	})
	g.Go(func() error {
		stats = f.fetchStats(gctx, s)
		return nil
	})
	_ = g.Wait()

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		f.logger.Debug("Discarding superseded load", zap.String("school_code", s.Code), zap.Time("date", date))
		return
	}
	if f.refreshed != refreshed {
		// A refresh for this key committed newer reviews while the load was in flight.
		reviews, stats = f.state.Reviews, f.state.Stats
	}
	f.state = Snapshot{School: &s, Date: date, Meals: meals, Reviews: reviews, Stats: stats}
	f.publishAndUnlock()
}

// Refresh reloads reviews and statistics after a review write. Meals are left alone.
// It is dropped if (school, date) is no longer current when it starts or finishes.
func (f *Fetcher) Refresh(ctx context.Context, school *mealapi.School, date time.Time) {
	if school == nil {
		return
	}
	date = datecursor.Day(date)
	k := keyOf(school, date)

	f.mu.Lock()
	if f.current != k {
		f.mu.Unlock()
		return
	}
	f.refresh++
	gen, refresh := f.gen, f.refresh
	f.mu.Unlock()

	s := *school
	var (
		reviews []mealapi.Review
		stats   mealapi.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reviews = f.fetchReviews(gctx, s, date)
		return nil
	})
	g.Go(func() error {
		stats = f.fetchStats(gctx, s)
		return nil
	})
	_ = g.Wait()

	f.mu.Lock()
	if f.gen != gen || f.refresh != refresh || f.current != k {
		f.mu.Unlock()
		return
	}
	f.state.Reviews = reviews
	f.state.Stats = stats
	f.refreshed++
	f.publishAndUnlock()
}

func (f *Fetcher) fetchReviews(ctx context.Context, s mealapi.School, date time.Time) []mealapi.Review {
	reviews, err := f.api.GetReviews(ctx, s.Code, s.OfficeCode, date, nil)
	if err != nil {
		f.logger.Warn("Failed to load reviews", zap.String("school_code", s.Code), zap.Error(err))
		return []mealapi.Review{}
	}
	if reviews == nil {
		reviews = []mealapi.Review{}
	}
	return reviews
}

func (f *Fetcher) fetchStats(ctx context.Context, s mealapi.School) mealapi.Stats {
	stats, err := f.api.GetSchoolStats(ctx, s.Code, s.OfficeCode)
	if err != nil {
		f.logger.Warn("Failed to load school stats", zap.String("school_code", s.Code), zap.Error(err))
		return mealapi.Stats{}
	}
	return stats
}

// StatsFor averages the loaded reviews of one meal type. It is scoped to the loaded day
// and differs from the school-wide Stats.AverageRating.
func (f *Fetcher) StatsFor(mealType mealapi.MealType) MealStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out MealStats
	sum := 0
	for _, r := range f.state.Reviews {
		if r.MealType == mealType {
			sum += r.Rating
			out.Count++
		}
	}
	if out.Count > 0 {
		out.Average = float64(sum) / float64(out.Count)
	}
	return out
}

func (f *Fetcher) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Fetcher) snapshotLocked() Snapshot {
	s := f.state
	if s.School != nil {
		school := *s.School
		s.School = &school
	}
	s.Meals.Meals = append([]mealapi.Meal{}, s.Meals.Meals...)
	s.Reviews = append([]mealapi.Review{}, s.Reviews...)
	return s
}

// Subscribe registers fn for every state change.
func (f *Fetcher) Subscribe(fn func(Snapshot)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// publishAndUnlock must be called with f.mu held. It releases it before notifying.
func (f *Fetcher) publishAndUnlock() {
	snap := f.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
