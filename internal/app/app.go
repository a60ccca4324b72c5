// Package app is the home screen controller. It owns the current date and the selected
// school and routes presentation intents to the reconciler, the fetcher and the review flow.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mealreview/internal/datecursor"
	"mealreview/internal/fetcher"
	"mealreview/internal/identity"
	"mealreview/internal/mealapi"
	"mealreview/internal/reconciler"
	"mealreview/internal/reviewflow"

	"go.uber.org/zap"
)

var ErrNoSchoolFound = errors.New("검색 결과가 없습니다")

// API is every server call the home screen makes.
type API interface {
	fetcher.API
	reviewflow.API
	reconciler.SchoolAPI
	GetMe(ctx context.Context, token string) (*mealapi.User, error)
	GetMyReviews(ctx context.Context, token string) ([]mealapi.Review, error)
}

// Identity is the session owner.
type Identity interface {
	Current() *identity.Session
	Subscribe(fn func(*identity.Session)) func()
	Token(ctx context.Context) (string, error)
	SetUser(user *mealapi.User) error
}

type Option func(*App)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

type App struct {
	api      API
	identity Identity
	logger   *zap.Logger
	now      func() time.Time

	reconciler *reconciler.Reconciler
	fetcher    *fetcher.Fetcher
	reviews    *reviewflow.Flow

	mu     sync.Mutex
	date   time.Time
	school *mealapi.School
	user   *mealapi.User

	unsubscribe []func()
}

func New(api API, ident Identity, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		api:      api,
		identity: ident,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.date = datecursor.Today(a.now())
	a.reconciler = reconciler.New(api, logger.Named("reconciler"))
	a.fetcher = fetcher.New(api, logger.Named("fetcher"))
	a.reviews = reviewflow.New(api, a.refresh, logger.Named("reviews"))
	return a
}

// Start follows the identity provider and processes the current session.
func (a *App) Start(ctx context.Context) {
	a.unsubscribe = append(a.unsubscribe,
		a.reconciler.Subscribe(func(ev reconciler.Event) {
			if ev.Adopted {
				a.adopt(ctx, ev.School)
			}
		}),
		a.identity.Subscribe(func(s *identity.Session) { a.onSession(ctx, s) }),
	)
	a.onSession(ctx, a.identity.Current())
}

// Close stops following the identity provider.
func (a *App) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
}

func (a *App) onSession(ctx context.Context, s *identity.Session) {
	if s == nil {
		a.mu.Lock()
		a.user = nil
		a.mu.Unlock()
		a.reconciler.Observe(ctx, nil)
		return
	}
	a.reconciler.Observe(ctx, a.syncProfile(ctx, s.User))
}

// SyncProfile re-reads the profile from the server and feeds it to the reconciler.
func (a *App) SyncProfile(ctx context.Context) {
	s := a.identity.Current()
	if s == nil {
		a.onSession(ctx, nil)
		return
	}
	a.reconciler.Observe(ctx, a.syncProfile(ctx, s.User))
}

// syncProfile prefers the server profile and falls back to the session's copy.
func (a *App) syncProfile(ctx context.Context, fallback *mealapi.User) *mealapi.User {
	user := fallback
	if token, err := a.identity.Token(ctx); err != nil {
		a.logger.Warn("No access token for profile sync", zap.Error(err))
	} else if me, err := a.api.GetMe(ctx, token); err != nil {
		a.logger.Warn("Profile sync failed, using session user", zap.Error(err))
	} else {
		user = me
		if err := a.identity.SetUser(me); err != nil {
			a.logger.Warn("Failed to store synced profile", zap.Error(err))
		}
	}

	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	return user
}

// adopt switches to a school the reconciler has just adopted.
func (a *App) adopt(ctx context.Context, school *mealapi.School) {
	if school == nil {
		return
	}
	a.mu.Lock()
	if a.school != nil && a.school.Code == school.Code && a.school.OfficeCode == school.OfficeCode {
		a.mu.Unlock()
		return
	}
	s := *school
	a.school = &s
	date := a.date
	a.mu.Unlock()

	a.fetcher.Load(ctx, &s, date)
}

func (a *App) load(ctx context.Context) {
	a.mu.Lock()
	school, date := a.school, a.date
	a.mu.Unlock()
	a.fetcher.Load(ctx, school, date)
}

func (a *App) refresh(ctx context.Context) {
	a.mu.Lock()
	school, date := a.school, a.date
	a.mu.Unlock()
	a.fetcher.Refresh(ctx, school, date)
}

// Search shows the first school matching name and resets the date to today.
func (a *App) Search(ctx context.Context, name string) (*mealapi.School, error) {
	results, err := a.api.SearchSchools(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search schools: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoSchoolFound
	}
	school := results[0]

	a.mu.Lock()
	a.school = &school
	a.date = datecursor.Today(a.now())
	a.mu.Unlock()

	a.load(ctx)
	return &school, nil
}

func (a *App) NextDay(ctx context.Context) time.Time {
	return a.moveDate(ctx, datecursor.StepForward)
}

func (a *App) PrevDay(ctx context.Context) time.Time {
	return a.moveDate(ctx, datecursor.StepBackward)
}

func (a *App) SetDate(ctx context.Context, d time.Time) time.Time {
	return a.moveDate(ctx, func(time.Time) time.Time { return datecursor.Day(d) })
}

func (a *App) moveDate(ctx context.Context, step func(time.Time) time.Time) time.Time {
	a.mu.Lock()
	a.date = step(a.date)
	date := a.date
	a.mu.Unlock()

	a.load(ctx)
	return date
}

// SelectSchool saves school as the user's home school and shows it.
func (a *App) SelectSchool(ctx context.Context, school mealapi.School) error {
	token, err := a.identity.Token(ctx)
	if err != nil {
		return err
	}
	user, err := a.reconciler.Select(ctx, token, school)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
	if err := a.identity.SetUser(user); err != nil {
		a.logger.Warn("Failed to store updated profile", zap.Error(err))
	}
	return nil
}

// OpenReview opens the review dialog for a meal of the current day.
func (a *App) OpenReview(mealType mealapi.MealType) (*mealapi.Review, error) {
	a.mu.Lock()
	user, school, date := a.user, a.school, a.date
	a.mu.Unlock()
	return a.reviews.Open(user, school, date, mealType, a.fetcher.Snapshot().Reviews)
}

func (a *App) SubmitReview(ctx context.Context, rating int, content string) (*mealapi.Review, error) {
	// A token may need a refresh round trip, so reject bad ratings first.
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: got %d", reviewflow.ErrInvalidRating, rating)
	}
	token, err := a.identity.Token(ctx)
	if err != nil {
		return nil, err
	}
	return a.reviews.Submit(ctx, token, rating, content)
}

func (a *App) DeleteReview(ctx context.Context, id int64) error {
	token, err := a.identity.Token(ctx)
	if err != nil {
		return err
	}
	return a.reviews.Delete(ctx, token, id)
}

func (a *App) MyReviews(ctx context.Context) ([]mealapi.Review, error) {
	token, err := a.identity.Token(ctx)
	if err != nil {
		return nil, err
	}
	return a.api.GetMyReviews(ctx, token)
}

// View is everything the presentation layer renders.
type View struct {
	Date        time.Time
	School      *mealapi.School
	User        *mealapi.User
	Data        fetcher.Snapshot
	SchoolState reconciler.State
	DialogOpen  bool
	ReviewOpen  bool
	Submitting  bool
}

func (a *App) View() View {
	a.mu.Lock()
	v := View{Date: a.date}
	if a.school != nil {
		s := *a.school
		v.School = &s
	}
	if a.user != nil {
		u := *a.user
		v.User = &u
	}
	a.mu.Unlock()

	v.Data = a.fetcher.Snapshot()
	v.SchoolState = a.reconciler.State()
	v.DialogOpen = a.reconciler.DialogOpen()
	v.ReviewOpen = a.reviews.IsOpen()
	v.Submitting = a.reviews.Submitting()
	return v
}

// StatsFor is the loaded day's average for one meal type.
func (a *App) StatsFor(mealType mealapi.MealType) fetcher.MealStats {
	return a.fetcher.StatsFor(mealType)
}

// Reconciler exposes the school dialog controls.
func (a *App) Reconciler() *reconciler.Reconciler {
	return a.reconciler
}

/*
MealReview is a school meal review service: NEIS meal menus, star ratings and written reviews per meal.
MealReview Copyright (C) 2025 MealReview contributors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
