package schools

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"mealreview/internal/common"
	"mealreview/internal/neis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const minQueryRunes = 2

// Searcher is the part of the NEIS client the handler needs.
type Searcher interface {
	SearchSchools(ctx context.Context, name string) ([]neis.SchoolRow, error)
}

type Handler struct {
	neis   Searcher
	logger *zap.Logger
}

func NewHandler(searcher Searcher, logger *zap.Logger) *Handler {
	return &Handler{neis: searcher, logger: logger}
}

func (h *Handler) GetSchools(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if utf8.RuneCountInString(name) < minQueryRunes {
		c.JSON(http.StatusBadRequest, common.Error("name must be at least 2 characters"))
		return
	}

	rows, err := h.neis.SearchSchools(c.Request.Context(), name)
	if err != nil {
		h.logger.Warn("School search failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusBadGateway, common.Error("failed to search schools"))
		return
	}

	result := make([]School, 0, len(rows))
	for _, row := range rows {
		result = append(result, School{
			ID:         row.SchoolCode,
			SchoolCode: row.SchoolCode,
			OfficeCode: row.OfficeCode,
			SchoolName: row.SchoolName,
			OfficeName: row.OfficeName,
			Kind:       row.Kind,
			Address:    row.Address,
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
