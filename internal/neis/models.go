package neis

// SchoolRow is one schoolInfo row. Only the fields the service reads are mapped.
type SchoolRow struct {
	OfficeCode string `json:"ATPT_OFCDC_SC_CODE"`
	OfficeName string `json:"ATPT_OFCDC_SC_NM"`
	SchoolCode string `json:"SD_SCHUL_CODE"`
	SchoolName string `json:"SCHUL_NM"`
	Kind       string `json:"SCHUL_KND_SC_NM"`
	Address    string `json:"ORG_RDNMA"`
}

// MealRow is one mealServiceDietInfo row.
type MealRow struct {
	OfficeCode   string `json:"ATPT_OFCDC_SC_CODE"`
	SchoolCode   string `json:"SD_SCHUL_CODE"`
	SchoolName   string `json:"SCHUL_NM"`
	MealCode     string `json:"MMEAL_SC_CODE"`
	MealName     string `json:"MMEAL_SC_NM"`
	Date         string `json:"MLSV_YMD"`
	Dishes       string `json:"DDISH_NM"`
	Origin       string `json:"ORPLC_INFO"`
	CalorieInfo  string `json:"CAL_INFO"`
	NutritionRaw string `json:"NTR_INFO"`
}

// MealQuery selects meals either by a single date or a date range (YYYYMMDD).
type MealQuery struct {
	OfficeCode string
	SchoolCode string
	Date       string
	StartDate  string
	EndDate    string
}

type result struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

type head struct {
	Head []struct {
		Result *result `json:"RESULT,omitempty"`
	} `json:"head"`
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
