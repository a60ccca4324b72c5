package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mealreview/internal/auth"
	"mealreview/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// GetReviews lists the reviews of one school, optionally narrowed to a date and meal.
func (h *Handler) GetReviews(c *gin.Context) {
	f := Filter{
		SchoolCode: c.Query("school_code"),
		OfficeCode: c.Query("office_code"),
		MealDate:   c.Query("meal_date"),
		MealType:   c.Query("meal_type"),
	}
	if f.SchoolCode == "" || f.OfficeCode == "" {
		c.JSON(http.StatusBadRequest, common.Error("school_code and office_code are required"))
		return
	}

	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("Failed to list reviews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to load reviews"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(list))
}

func (h *Handler) PostReview(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.CreateErrorResponse([]string{err.Error()}))
		return
	}
	if _, err := time.Parse("20060102", req.MealDate); err != nil {
		c.JSON(http.StatusBadRequest, common.Error("Invalid date format. Please use YYYYMMDD"))
		return
	}
	if req.SchoolCode != user.SchoolCode || req.OfficeCode != user.OfficeCode {
		c.JSON(http.StatusForbidden, common.Error("you can only review meals of your own school"))
		return
	}

	review, err := h.repo.Create(c.Request.Context(), user.ID, req)
	if errors.Is(err, ErrDuplicate) {
		c.JSON(http.StatusConflict, common.Error(err.Error()))
		return
	}
	if err != nil {
		h.logger.Error("Failed to create review", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to create review"))
		return
	}
	c.JSON(http.StatusCreated, common.CreateSuccessResponse(review))
}

func reviewID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, common.Error("invalid review id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) PutReview(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}
	id, ok := reviewID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.CreateErrorResponse([]string{err.Error()}))
		return
	}

	review, err := h.repo.Update(c.Request.Context(), id, user.ID, req)
	if errors.Is(err, ErrReviewNotFound) {
		c.JSON(http.StatusNotFound, common.Error(err.Error()))
		return
	}
	if err != nil {
		h.logger.Error("Failed to update review", zap.Int64("review_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to update review"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(review))
}

func (h *Handler) DeleteReview(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}
	id, ok := reviewID(c)
	if !ok {
		return
	}

	err := h.repo.Delete(c.Request.Context(), id, user.ID)
	if errors.Is(err, ErrReviewNotFound) {
		c.JSON(http.StatusNotFound, common.Error(err.Error()))
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete review", zap.Int64("review_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to delete review"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(gin.H{"id": id}))
}

// GetMyReviews lists the caller's reviews across all schools.
func (h *Handler) GetMyReviews(c *gin.Context) {
	user := auth.GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}
	list, err := h.repo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list user reviews", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to load reviews"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(list))
}

func (h *Handler) GetStats(c *gin.Context) {
	schoolCode, officeCode := c.Query("school_code"), c.Query("office_code")
	if schoolCode == "" || officeCode == "" {
		c.JSON(http.StatusBadRequest, common.Error("school_code and office_code are required"))
		return
	}
	stats, err := h.repo.Stats(c.Request.Context(), schoolCode, officeCode)
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to load stats"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(stats))
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
