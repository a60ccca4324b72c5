package mealapi

import "time"

// MealType is the client-side meal tag. The wire uses the Korean names.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the meals of a day in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

var wireNames = map[MealType]string{
	Breakfast: "조식",
	Lunch:     "중식",
	Dinner:    "석식",
}

// WireName returns the Korean name NEIS and the review store use.
func (t MealType) WireName() string {
	if name, ok := wireNames[t]; ok {
		return name
	}
	return string(t)
}

// ParseMealType maps a wire name back. Anything unrecognised is lunch.
func ParseMealType(wire string) MealType {
	switch wire {
	case "조식", string(Breakfast):
		return Breakfast
	case "석식", string(Dinner):
		return Dinner
	}
	return Lunch
}

// School is immutable once fetched; selecting another school replaces the value.
type School struct {
	ID            string
	Code          string
	OfficeCode    string
	Name          string
	Address       string
	AverageRating *float64
}

type Meal struct {
	Type      MealType
	Dishes    []string
	Calories  string
	Nutrition map[string]string
}

// DailyMeal holds at most one Meal per type. Date is YYYY-MM-DD.
type DailyMeal struct {
	Date  string
	Meals []Meal
}

// Meal returns the meal of the given type, if served.
func (d DailyMeal) Meal(t MealType) (Meal, bool) {
	for _, m := range d.Meals {
		if m.Type == t {
			return m, true
		}
	}
	return Meal{}, false
}

type Review struct {
	ID         int64
	UserID     int64
	SchoolCode string
	OfficeCode string
	MealDate   string
	MealType   MealType
	Rating     int
	Content    string
	CreatedAt  time.Time
}

// ReviewInput is the payload for creating or editing a review. MealDate is YYYYMMDD.
type ReviewInput struct {
	SchoolCode string
	OfficeCode string
	MealDate   string
	MealType   MealType
	Rating     int
	Content    string
}

type User struct {
	ID         int64  `json:"id" yaml:"id"`
	Email      string `json:"email" yaml:"email"`
	Name       string `json:"name" yaml:"name"`
	SchoolCode string `json:"school_code,omitempty" yaml:"school_code,omitempty"`
	OfficeCode string `json:"office_code,omitempty" yaml:"office_code,omitempty"`
	SchoolName string `json:"school_name,omitempty" yaml:"school_name,omitempty"`
}

// HasSchool reports whether the profile carries a home school.
func (u *User) HasSchool() bool {
	return u != nil && u.SchoolCode != ""
}

// Stats are school-wide and all-time, independent of date and meal type.
type Stats struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Wire shapes of the server responses.

type wireSchool struct {
	ID         string `json:"id"`
	SchoolCode string `json:"school_code"`
	OfficeCode string `json:"office_code"`
	SchoolName string `json:"school_name"`
	Address    string `json:"address"`
}

type wireMeal struct {
	MealDate        string            `json:"meal_date"`
	MealType        string            `json:"meal_type"`
	ParsedDishes    []string          `json:"parsed_dishes"`
	ParsedNutrition map[string]string `json:"parsed_nutrition"`
	Calories        string            `json:"calories"`
}

type wireReview struct {
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

func (w wireReview) review() Review {
	return Review{
		ID:         w.ID,
		UserID:     w.UserID,
		SchoolCode: w.SchoolCode,
		OfficeCode: w.OfficeCode,
		MealDate:   w.MealDate,
		MealType:   ParseMealType(w.MealType),
		Rating:     w.Rating,
		Content:    w.Content,
		CreatedAt:  w.CreatedAt,
	}
}

type wireReviewInput struct {
	SchoolCode string `json:"school_code,omitempty"`
	OfficeCode string `json:"office_code,omitempty"`
	MealDate   string `json:"meal_date,omitempty"`
	MealType   string `json:"meal_type,omitempty"`
	Rating     int    `json:"rating"`
	Content    string `json:"content"`
}
