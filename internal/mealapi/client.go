// Package mealapi is the typed client for the MealReview HTTP API.
package mealapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mealreview/internal/datecursor"

	"go.uber.org/zap"
)

const DefaultBaseURL = "http://localhost:9237"

// envelope mirrors the server's {data, errors, metadata} response.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []string        `json:"errors"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginURL is where a browser starts the OAuth flow for provider.
func (c *Client) LoginURL(provider string) string {
	return c.baseURL + "/api/auth/login/" + url.PathEscape(provider)
}

type request struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// do sends req and decodes the envelope data into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("Request failed", zap.String("method", req.method), zap.String("path", req.path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && len(env.Errors) > 0 {
			apiErr.Reason = env.Errors[0]
		}
		c.logger.Debug("Request rejected",
			zap.String("method", req.method), zap.String("path", req.path),
			zap.Int("status", resp.StatusCode), zap.String("reason", apiErr.Reason))
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", req.path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", req.path, err)
	}
	return nil
}

func schoolQuery(code, office string) url.Values {
	return url.Values{"school_code": {code}, "office_code": {office}}
}

func (c *Client) SearchSchools(ctx context.Context, name string) ([]School, error) {
	var rows []wireSchool
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v0/schools", query: url.Values{"name": {name}}}, &rows)
	if err != nil {
		return nil, err
	}
	schools := make([]School, 0, len(rows))
	for _, r := range rows {
		schools = append(schools, School{
			ID:         r.ID,
			Code:       r.SchoolCode,
			OfficeCode: r.OfficeCode,
			Name:       r.SchoolName,
			Address:    r.Address,
		})
	}
	return schools, nil
}

// GetMeals returns the meals served on date, one entry per meal type.
func (c *Client) GetMeals(ctx context.Context, code, office string, date time.Time) (DailyMeal, error) {
	day := DailyMeal{Date: datecursor.Format(date), Meals: []Meal{}}

	q := schoolQuery(code, office)
	q.Set("date", datecursor.Compact(date))
	var rows []wireMeal
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v0/meals", query: q}, &rows); err != nil {
		return day, err
	}

	seen := map[MealType]bool{}
	for _, r := range rows {
		t := ParseMealType(r.MealType)
		if seen[t] {
			continue
		}
		seen[t] = true
		day.Meals = append(day.Meals, Meal{
			Type:      t,
			Dishes:    r.ParsedDishes,
			Calories:  r.Calories,
			Nutrition: r.ParsedNutrition,
		})
	}
	return day, nil
}

// GetReviews lists the reviews of a school for date, optionally for one meal type.
func (c *Client) GetReviews(ctx context.Context, code, office string, date time.Time, mealType *MealType) ([]Review, error) {
	q := schoolQuery(code, office)
	q.Set("meal_date", datecursor.Compact(date))
	if mealType != nil {
		q.Set("meal_type", mealType.WireName())
	}
	return c.reviews(ctx, request{method: http.MethodGet, path: "/api/v0/reviews", query: q})
}

func (c *Client) GetMyReviews(ctx context.Context, token string) ([]Review, error) {
	return c.reviews(ctx, request{method: http.MethodGet, path: "/api/user/reviews", token: token})
}

func (c *Client) reviews(ctx context.Context, req request) ([]Review, error) {
	var rows []wireReview
	if err := c.do(ctx, req, &rows); err != nil {
		return nil, err
	}
	reviews := make([]Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.review())
	}
	return reviews, nil
}

func (c *Client) GetSchoolStats(ctx context.Context, code, office string) (Stats, error) {
	var stats Stats
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v0/stats", query: schoolQuery(code, office)}, &stats)
	return stats, err
}

func (c *Client) CreateReview(ctx context.Context, token string, in ReviewInput) (*Review, error) {
	payload := wireReviewInput{
		SchoolCode: in.SchoolCode,
		OfficeCode: in.OfficeCode,
		MealDate:   in.MealDate,
		MealType:   in.MealType.WireName(),
		Rating:     in.Rating,
		Content:    in.Content,
	}
	return c.writeReview(ctx, request{method: http.MethodPost, path: "/api/v0/reviews", token: token, body: payload})
}

// UpdateReview changes rating and content; the meal a review belongs to cannot move.
func (c *Client) UpdateReview(ctx context.Context, token string, id int64, in ReviewInput) (*Review, error) {
	payload := wireReviewInput{Rating: in.Rating, Content: in.Content}
	return c.writeReview(ctx, request{method: http.MethodPut, path: reviewPath(id), token: token, body: payload})
}

func (c *Client) writeReview(ctx context.Context, req request) (*Review, error) {
	var w wireReview
	if err := c.do(ctx, req, &w); err != nil {
		return nil, err
	}
	r := w.review()
	return &r, nil
}

func (c *Client) DeleteReview(ctx context.Context, token string, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: reviewPath(id), token: token}, nil)
}

func reviewPath(id int64) string {
	return "/api/v0/reviews/" + strconv.FormatInt(id, 10)
}

func (c *Client) GetMe(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", token: token}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUserSchool(ctx context.Context, token, code, office, name string) (*User, error) {
	body := map[string]string{"school_code": code, "office_code": office, "school_name": name}
	var u User
	if err := c.do(ctx, request{method: http.MethodPut, path: "/api/user/school", token: token, body: body}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshToken trades a refresh token for a new pair. The old refresh token stops working.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/refresh", body: body}, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/api/auth/logout", token: token}, nil)
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
