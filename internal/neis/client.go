// Package neis is a client for the NEIS Open API (open.neis.go.kr) school and meal endpoints.
package neis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://open.neis.go.kr/hub"

	// SampleKey is the shared key NEIS accepts without registration; it is never sent explicitly.
	SampleKey = "sample"

	endpointSchools = "schoolInfo"
	endpointMeals   = "mealServiceDietInfo"

	pageSize = 100

	// resultNoData is what NEIS answers when a query matches nothing.
	resultNoData = "INFO-200"
)

// ErrUpstream wraps every failure talking to NEIS.
var ErrUpstream = errors.New("neis upstream error")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
	calls   *prometheus.CounterVec
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegisterer exports an upstream call counter labelled by endpoint and outcome.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.calls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealreview",
			Subsystem: "neis",
			Name:      "calls_total",
			Help:      "NEIS Open API calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"})
		reg.MustRegister(c.calls)
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchSchools looks schools up by (partial) name.
func (c *Client) SearchSchools(ctx context.Context, name string) ([]SchoolRow, error) {
	return fetch[SchoolRow](ctx, c, endpointSchools, url.Values{"SCHUL_NM": {name}})
}

// Meals returns the meal rows of one school for a date or a date range.
func (c *Client) Meals(ctx context.Context, q MealQuery) ([]MealRow, error) {
	params := url.Values{
		"ATPT_OFCDC_SC_CODE": {q.OfficeCode},
		"SD_SCHUL_CODE":      {q.SchoolCode},
	}
	if q.Date != "" {
		params.Set("MLSV_YMD", q.Date)
	}
	if q.StartDate != "" {
		params.Set("MLSV_FROM_YMD", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("MLSV_TO_YMD", q.EndDate)
	}
	return fetch[MealRow](ctx, c, endpointMeals, params)
}

func fetch[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, error) {
	rows, err := get[T](ctx, c, endpoint, params)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		c.logger.Warn("NEIS request failed", zap.String("endpoint", endpoint), zap.Error(err))
	case len(rows) == 0:
		outcome = "empty"
	}
	if c.calls != nil {
		c.calls.WithLabelValues(endpoint, outcome).Inc()
	}
	return rows, err
}

func get[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, error) {
	params.Set("Type", "json")
	params.Set("pIndex", "1")
	params.Set("pSize", strconv.Itoa(pageSize))
	if c.apiKey != "" && c.apiKey != SampleKey {
		params.Set("KEY", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return decodeRows[T](endpoint, payload)
}

// decodeRows unpacks the {"<endpoint>": [{"head": ...}, {"row": [...]}]} envelope.
// A bare RESULT object means no data (INFO-200) or an API-level error.
func decodeRows[T any](endpoint string, payload map[string]json.RawMessage) ([]T, error) {
	raw, ok := payload[endpoint]
	if !ok {
		if rawResult, ok := payload["RESULT"]; ok {
			var res result
			if err := json.Unmarshal(rawResult, &res); err != nil {
				return nil, fmt.Errorf("%w: decode result: %v", ErrUpstream, err)
			}
			if res.Code == resultNoData {
				return []T{}, nil
			}
			return nil, fmt.Errorf("%w: %s %s", ErrUpstream, res.Code, res.Message)
		}
		return []T{}, nil
	}

	var sections []json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUpstream, endpoint, err)
	}
	if len(sections) < 2 {
		return []T{}, nil
	}

	var h head
	if err := json.Unmarshal(sections[0], &h); err == nil {
		for _, entry := range h.Head {
			if entry.Result != nil && entry.Result.Code != "INFO-000" && entry.Result.Code != "" {
				return nil, fmt.Errorf("%w: %s %s", ErrUpstream, entry.Result.Code, entry.Result.Message)
			}
		}
	}

	var body struct {
		Row []T `json:"row"`
	}
	if err := json.Unmarshal(sections[1], &body); err != nil {
		return nil, fmt.Errorf("%w: decode rows: %v", ErrUpstream, err)
	}
	if body.Row == nil {
		return []T{}, nil
	}
	return body.Row, nil
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
