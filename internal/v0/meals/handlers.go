package meals

import (
	"context"
	"net/http"
	"time"

	"mealreview/internal/common"
	"mealreview/internal/neis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Source is the part of the NEIS client the handler needs.
type Source interface {
	Meals(ctx context.Context, q neis.MealQuery) ([]neis.MealRow, error)
}

type Handler struct {
	neis   Source
	logger *zap.Logger
}

func NewHandler(source Source, logger *zap.Logger) *Handler {
	return &Handler{neis: source, logger: logger}
}

func validDate(s string) bool {
	_, err := time.Parse("20060102", s)
	return err == nil
}

// GetMeals answers either a single date or a start_date/end_date range.
func (h *Handler) GetMeals(c *gin.Context) {
	q := neis.MealQuery{
		SchoolCode: c.Query("school_code"),
		OfficeCode: c.Query("office_code"),
		Date:       c.Query("date"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
	}
	if q.SchoolCode == "" || q.OfficeCode == "" {
		c.JSON(http.StatusBadRequest, common.Error("school_code and office_code are required"))
		return
	}

	switch {
	case q.Date != "":
		if !validDate(q.Date) {
			c.JSON(http.StatusBadRequest, common.Error("Invalid date format. Please use YYYYMMDD"))
			return
		}
		q.StartDate, q.EndDate = "", ""
	case q.StartDate != "" && q.EndDate != "":
		if !validDate(q.StartDate) || !validDate(q.EndDate) {
			c.JSON(http.StatusBadRequest, common.Error("Invalid date format. Please use YYYYMMDD"))
			return
		}
		if q.StartDate > q.EndDate {
			c.JSON(http.StatusBadRequest, common.Error("start_date must not be after end_date"))
			return
		}
	default:
		c.JSON(http.StatusBadRequest, common.Error("date or start_date and end_date are required"))
		return
	}

	rows, err := h.neis.Meals(c.Request.Context(), q)
	if err != nil {
		h.logger.Warn("Meal lookup failed",
			zap.String("school_code", q.SchoolCode), zap.String("office_code", q.OfficeCode), zap.Error(err))
		c.JSON(http.StatusBadGateway, common.Error("failed to fetch meals"))
		return
	}

	result := make([]Meal, 0, len(rows))
	for _, row := range rows {
		result = append(result, Meal{
			MealDate:        row.Date,
			MealType:        row.MealName,
			Dishes:          row.Dishes,
			ParsedDishes:    neis.ParseDishes(row.Dishes),
			ParsedNutrition: neis.ParseNutrition(row.NutritionRaw),
			Calories:        row.CalorieInfo,
			CaloriesKcal:    neis.ParseCalories(row.CalorieInfo),
			Origin:          row.Origin,
		})
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(result))
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
