// Package reconciler keeps the selected school in step with the signed-in user's profile
// and gates the UI into choosing a school when the profile has none.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mealreview/internal/mealapi"

	"go.uber.org/zap"
)

var ErrSchoolNotFound = errors.New("stored school not found")

// SchoolAPI is the server surface the reconciler needs.
type SchoolAPI interface {
	SearchSchools(ctx context.Context, name string) ([]mealapi.School, error)
	UpdateUserSchool(ctx context.Context, token, code, office, name string) (*mealapi.User, error)
}

type Reconciler struct {
	api    SchoolAPI
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	selected   *mealapi.School
	dialogOpen bool
	last       marker
	adopted    bool
	subs       map[int]func(Event)
	nextSub    int
}

func New(api SchoolAPI, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		api:    api,
		logger: logger,
		state:  Unresolved,
		subs:   map[int]func(Event){},
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Selected returns the adopted school, or nil.
func (r *Reconciler) Selected() *mealapi.School {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSchool(r.selected)
}

func (r *Reconciler) DialogOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dialogOpen
}

func (r *Reconciler) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// commit applies change under the lock and notifies subscribers if anything moved.
func (r *Reconciler) commit(change func() bool) {
	r.mu.Lock()
	if !change() {
		r.adopted = false
		r.mu.Unlock()
		return
	}
	ev := Event{State: r.state, School: cloneSchool(r.selected), DialogOpen: r.dialogOpen, Adopted: r.adopted}
	r.adopted = false
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Observe feeds an identity or profile observation. A nil user means signed out.
func (r *Reconciler) Observe(ctx context.Context, user *mealapi.User) {
	if user == nil {
		r.commit(func() bool {
			changed := r.state != NoUser || r.dialogOpen
			r.state = NoUser
			r.dialogOpen = false
			r.last = marker{}
			return changed
		})
		return
	}

	if user.SchoolCode == "" {
		r.commit(func() bool {
			switch {
			case r.last.hadSchool():
				if r.state == SchoolTransientMissing {
					return false
				}
				r.logger.Debug("Profile reported no school after having one; ignoring",
					zap.String("last_code", r.last.code))
				r.state = SchoolTransientMissing
				return true
			case r.state == MustSelect:
				return false
			default:
				// SchoolUnset moves straight on to the mandatory dialog.
				r.last = processedCode("")
				r.state = MustSelect
				r.dialogOpen = true
				return true
			}
		})
		return
	}

	var lookup bool
	r.commit(func() bool {
		if r.last.is(user.SchoolCode) {
			if r.state != SchoolTransientMissing {
				return false
			}
			if r.selected != nil && r.selected.Code == user.SchoolCode {
				r.state = SchoolSet
			} else {
				r.state = SchoolUnset
			}
			return true
		}
		// Mark before the lookup so a failing lookup is not retried on every poll.
		r.last = processedCode(user.SchoolCode)
		lookup = true
		return false
	})
	if !lookup {
		return
	}

	school, err := r.lookup(ctx, user)
	r.commit(func() bool {
		if !r.last.is(user.SchoolCode) {
			// A newer observation has taken over.
			return false
		}
		r.dialogOpen = false
		if err != nil {
			r.logger.Warn("Could not resolve the profile's school",
				zap.String("school_code", user.SchoolCode), zap.String("school_name", user.SchoolName), zap.Error(err))
			r.state = SchoolUnset
			r.selected = nil
			return true
		}
		r.state = SchoolSet
		r.selected = school
		r.adopted = true
		return true
	})
}

// lookup finds the stored school by name and keeps the entry whose code matches.
func (r *Reconciler) lookup(ctx context.Context, user *mealapi.User) (*mealapi.School, error) {
	candidates, err := r.api.SearchSchools(ctx, user.SchoolName)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", user.SchoolName, err)
	}
	for i := range candidates {
		c := candidates[i]
		if c.Code != user.SchoolCode {
			continue
		}
		if user.OfficeCode != "" && c.OfficeCode != user.OfficeCode {
			continue
		}
		return &c, nil
	}
	return nil, ErrSchoolNotFound
}

// Select persists an explicit choice and adopts it. The dialog closes on success.
// On failure the state is left as it was.
func (r *Reconciler) Select(ctx context.Context, token string, school mealapi.School) (*mealapi.User, error) {
	user, err := r.api.UpdateUserSchool(ctx, token, school.Code, school.OfficeCode, school.Name)
	if err != nil {
		return nil, fmt.Errorf("save school: %w", err)
	}
	r.commit(func() bool {
		r.last = processedCode(school.Code)
		r.state = SchoolSet
		r.selected = cloneSchool(&school)
		r.dialogOpen = false
		r.adopted = true
		return true
	})
	return user, nil
}

// OpenSettings opens the school dialog as dismissable.
func (r *Reconciler) OpenSettings() {
	r.commit(func() bool {
		if r.dialogOpen {
			return false
		}
		r.dialogOpen = true
		return true
	})
}

// CloseDialog reports whether the dialog closed. It never closes while a choice is mandatory.
func (r *Reconciler) CloseDialog() bool {
	closed := false
	r.commit(func() bool {
		if r.state == MustSelect || !r.dialogOpen {
			return false
		}
		r.dialogOpen = false
		closed = true
		return true
	})
	return closed
}

func cloneSchool(s *mealapi.School) *mealapi.School {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
