package schools

// School is the trimmed schoolInfo row returned to clients. ID is the school code.
type School struct {
	ID         string `json:"id"`
	SchoolCode string `json:"school_code"`
	OfficeCode string `json:"office_code"`
	SchoolName string `json:"school_name"`
	OfficeName string `json:"office_name,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Address    string `json:"address"`
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
