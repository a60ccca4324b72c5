package reviews

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrDuplicate      = errors.New("you have already reviewed this meal")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const reviewColumns = `id, user_id, school_code, office_code, meal_date, meal_type, rating, content, created_at`

func scanReview(row interface{ Scan(...any) error }) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.UserID, &r.SchoolCode, &r.OfficeCode, &r.MealDate, &r.MealType,
		&r.Rating, &r.Content, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Avoid nil slices in JSON response
	result := []Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *review)
	}
	return result, rows.Err()
}

// List returns the reviews matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Review, error) {
	var conds []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"school_code", f.SchoolCode},
		{"office_code", f.OfficeCode},
		{"meal_date", f.MealDate},
		{"meal_type", f.MealType},
	} {
		if c.value != "" {
			conds = append(conds, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	query := "SELECT " + reviewColumns + " FROM reviews"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return r.query(ctx, query+" ORDER BY created_at DESC, id DESC", args...)
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Review, error) {
	return r.query(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
}

func (r *Repository) Get(ctx context.Context, id int64) (*Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	return review, err
}

// Create stores a review. A second review of the same meal by the same user fails with ErrDuplicate.
func (r *Repository) Create(ctx context.Context, userID int64, req CreateRequest) (*Review, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (user_id, school_code, office_code, meal_date, meal_type, rating, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, req.SchoolCode, req.OfficeCode, req.MealDate, req.MealType, req.Rating, req.Content)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update changes a review owned by userID. Reviews of other users are reported as not found.
func (r *Repository) Update(ctx context.Context, id, userID int64, req UpdateRequest) (*Review, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET rating = ?, content = ? WHERE id = ? AND user_id = ?
	`, req.Rating, req.Content, id, userID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrReviewNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Stats aggregates every review of a school. The average is rounded to two decimals.
func (r *Repository) Stats(ctx context.Context, schoolCode, officeCode string) (Stats, error) {
	var stats Stats
	var avg float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews
		WHERE school_code = ? AND office_code = ?
	`, schoolCode, officeCode).Scan(&stats.ReviewCount, &avg)
	if err != nil {
		return Stats{}, err
	}
	stats.AverageRating = math.Round(avg*100) / 100
	return stats, nil
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
