package meals

// Meal is one processed mealServiceDietInfo row.
type Meal struct {
	MealDate        string            `json:"meal_date"`
	MealType        string            `json:"meal_type"`
	Dishes          string            `json:"dishes"`
	ParsedDishes    []string          `json:"parsed_dishes"`
	ParsedNutrition map[string]string `json:"parsed_nutrition"`
	Calories        string            `json:"calories"`
	CaloriesKcal    string            `json:"calories_kcal"`
	Origin          string            `json:"origin,omitempty"`
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
