package neis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseDishes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"allergy codes stripped", "백미밥 <br/>쇠고기배추된장국 (5.6.16)", []string{"백미밥", "쇠고기배추된장국"}},
		{"empty", "", []string{}},
		{"blank segments dropped", "김치 (9)<br/> <br/>우유", []string{"김치", "우유"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseDishes(tt.raw)); diff != "" {
				t.Errorf("ParseDishes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNutrition(t *testing.T) {
	got := ParseNutrition("탄수화물(g) : 123.3<br/>단백질(g) : 31.2<br/>garbage")
	assert.Equal(t, map[string]string{"탄수화물(g)": "123.3", "단백질(g)": "31.2"}, got)
	assert.Empty(t, ParseNutrition(""))
}

func TestParseCalories(t *testing.T) {
	assert.Equal(t, "812.3", ParseCalories("812.3 Kcal"))
	assert.Equal(t, "", ParseCalories("  "))
}
