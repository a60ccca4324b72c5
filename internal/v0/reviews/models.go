package reviews

import "time"

// Korean meal names as stored and as NEIS reports them.
const (
	MealBreakfast = "조식"
	MealLunch     = "중식"
	MealDinner    = "석식"
)

type Review struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SchoolCode string    `json:"school_code"`
	OfficeCode string    `json:"office_code"`
	MealDate   string    `json:"meal_date"`
	MealType   string    `json:"meal_type"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateRequest struct {
	SchoolCode string `json:"school_code" binding:"required"`
	OfficeCode string `json:"office_code" binding:"required"`
	MealDate   string `json:"meal_date" binding:"required,len=8,numeric"`
	MealType   string `json:"meal_type" binding:"required,oneof=조식 중식 석식"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	Content    string `json:"content" binding:"max=1000"`
}

// UpdateRequest changes the rating and text; the meal a review belongs to is fixed.
type UpdateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Content string `json:"content" binding:"max=1000"`
}

// Filter narrows a listing. Empty fields are ignored.
type Filter struct {
	SchoolCode string
	OfficeCode string
	MealDate   string
	MealType   string
}

type Stats struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
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
