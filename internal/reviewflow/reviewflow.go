// Package reviewflow drives the review dialog: who may open it, which review it edits,
// and what happens on submit and delete.
package reviewflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mealreview/internal/datecursor"
	"mealreview/internal/mealapi"

	"go.uber.org/zap"
)

var (
	ErrLoginRequired = errors.New("로그인이 필요합니다")
	ErrNotOwnSchool  = errors.New("본인의 학교에만 리뷰를 작성할 수 있습니다")
	ErrInvalidRating = errors.New("별점은 1점에서 5점 사이여야 합니다")
	ErrNotOpen       = errors.New("review dialog is not open")
	ErrSubmitting    = errors.New("a submission is already in progress")
)

// GenericFailure is shown when the server gave no reason.
const GenericFailure = "리뷰 등록에 실패했습니다. 잠시 후 다시 시도해주세요."

// API is the write surface the flow needs.
type API interface {
	CreateReview(ctx context.Context, token string, in mealapi.ReviewInput) (*mealapi.Review, error)
	UpdateReview(ctx context.Context, token string, id int64, in mealapi.ReviewInput) (*mealapi.Review, error)
	DeleteReview(ctx context.Context, token string, id int64) error
}

// Target is the meal the open dialog reviews.
type Target struct {
	School   mealapi.School
	Date     time.Time
	MealType mealapi.MealType
}

type Flow struct {
	api     API
	refresh func(ctx context.Context)
	logger  *zap.Logger

	mu         sync.Mutex
	open       bool
	target     Target
	existing   *mealapi.Review
	submitting bool
}

// New returns a flow that calls refresh after every successful write.
func New(api API, refresh func(ctx context.Context), logger *zap.Logger) *Flow {
	if refresh == nil {
		refresh = func(context.Context) {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{api: api, refresh: refresh, logger: logger}
}

// Open checks that user may review meals of school and opens the dialog. It returns the
// user's existing review of that meal, if one is among reviews, to pre-fill the form.
func (f *Flow) Open(user *mealapi.User, school *mealapi.School, date time.Time, mealType mealapi.MealType, reviews []mealapi.Review) (*mealapi.Review, error) {
	if user == nil {
		return nil, ErrLoginRequired
	}
	if school == nil || school.Code != user.SchoolCode {
		return nil, ErrNotOwnSchool
	}

	var existing *mealapi.Review
	day := datecursor.Compact(date)
	for i := range reviews {
		r := reviews[i]
		if r.UserID == user.ID && r.MealType == mealType && r.MealDate == day && r.SchoolCode == school.Code {
			existing = &r
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.target = Target{School: *school, Date: datecursor.Day(date), MealType: mealType}
	f.existing = existing
	return copyReview(existing), nil
}

// Submit validates the rating before any request, then updates the existing review or
// creates a new one. On failure the dialog stays open so the user can retry.
func (f *Flow) Submit(ctx context.Context, token string, rating int, content string) (*mealapi.Review, error) {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return nil, ErrNotOpen
	}
	if rating < 1 || rating > 5 {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.submitting = true
	target, existing := f.target, f.existing
	f.mu.Unlock()

	in := mealapi.ReviewInput{
		SchoolCode: target.School.Code,
		OfficeCode: target.School.OfficeCode,
		MealDate:   datecursor.Compact(target.Date),
		MealType:   target.MealType,
		Rating:     rating,
		Content:    content,
	}

	var (
		review *mealapi.Review
		err    error
	)
	if existing != nil {
		review, err = f.api.UpdateReview(ctx, token, existing.ID, in)
	} else {
		review, err = f.api.CreateReview(ctx, token, in)
	}

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.mu.Unlock()
		f.logger.Warn("Review submission failed", zap.String("school_code", in.SchoolCode), zap.Error(err))
		return nil, fmt.Errorf("submit review: %w", err)
	}
	f.open = false
	f.existing = nil
	f.mu.Unlock()

	f.refresh(ctx)
	return review, nil
}

// Delete removes a review and refreshes.
func (f *Flow) Delete(ctx context.Context, token string, id int64) error {
	if err := f.api.DeleteReview(ctx, token, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	f.refresh(ctx)
	return nil
}

// Close dismisses the dialog without submitting.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.existing = nil
}

func (f *Flow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Flow) Target() Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

func (f *Flow) Existing() *mealapi.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyReview(f.existing)
}

// FailureMessage is the user-facing text for a failed write.
func FailureMessage(err error) string {
	for _, sentinel := range []error{ErrInvalidRating, ErrLoginRequired, ErrNotOwnSchool} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if reason, ok := mealapi.Reason(err); ok {
		return reason
	}
	return GenericFailure
}

func copyReview(r *mealapi.Review) *mealapi.Review {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
