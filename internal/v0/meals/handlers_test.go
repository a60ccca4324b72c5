package meals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mealreview/internal/neis"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	rows []neis.MealRow
	got  *neis.MealQuery
}

func (f *fakeSource) Meals(_ context.Context, q neis.MealQuery) ([]neis.MealRow, error) {
	f.got = &q
	return f.rows, nil
}

func serve(t *testing.T, src Source, query string) (int, []Meal) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v0"), NewHandler(src, zap.NewNop()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/meals?"+query, nil))

	var env struct {
		Data []Meal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env.Data
}

func TestGetMeals_SingleDate(t *testing.T) {
	src := &fakeSource{rows: []neis.MealRow{{
		MealName:     "중식",
		Date:         "20250310",
		Dishes:       "백미밥<br/>미역국 (5.6)",
		CalorieInfo:  "812.3 Kcal",
		NutritionRaw: "탄수화물(g) : 123.3<br/>단백질(g) : 31.2",
	}}}

	code, got := serve(t, src, "school_code=7010569&office_code=B10&date=20250310")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, got, 1)
	assert.Equal(t, "중식", got[0].MealType)
	assert.Equal(t, []string{"백미밥", "미역국"}, got[0].ParsedDishes)
	assert.Equal(t, "31.2", got[0].ParsedNutrition["단백질(g)"])
	assert.Equal(t, "812.3 Kcal", got[0].Calories)
	assert.Equal(t, "812.3", got[0].CaloriesKcal)

	assert.Equal(t, neis.MealQuery{SchoolCode: "7010569", OfficeCode: "B10", Date: "20250310"}, *src.got)
}

func TestGetMeals_Range(t *testing.T) {
	src := &fakeSource{}
	code, got := serve(t, src, "school_code=7010569&office_code=B10&start_date=20250310&end_date=20250314")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, got)
	assert.Equal(t, "20250310", src.got.StartDate)
	assert.Equal(t, "20250314", src.got.EndDate)
}

func TestGetMeals_BadRequests(t *testing.T) {
	for _, query := range []string{
		"office_code=B10&date=20250310",
		"school_code=7010569&office_code=B10",
		"school_code=7010569&office_code=B10&date=2025-03-10",
		"school_code=7010569&office_code=B10&start_date=20250310",
		"school_code=7010569&office_code=B10&start_date=20250314&end_date=20250310",
	} {
		t.Run(query, func(t *testing.T) {
			src := &fakeSource{}
			code, _ := serve(t, src, query)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Nil(t, src.got)
		})
	}
}
