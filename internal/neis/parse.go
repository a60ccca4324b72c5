package neis

import (
	"regexp"
	"strings"
)

const lineBreak = "<br/>"

var allergyCodes = regexp.MustCompile(`\s*\([\d.]+\)`)

// ParseDishes splits DDISH_NM on <br/> and strips allergy markers such as "(5.6.16)".
func ParseDishes(raw string) []string {
	dishes := []string{}
	if raw == "" {
		return dishes
	}
	for _, part := range strings.Split(raw, lineBreak) {
		dish := strings.TrimSpace(allergyCodes.ReplaceAllString(part, ""))
		if dish != "" {
			dishes = append(dishes, dish)
		}
	}
	return dishes
}

// ParseNutrition turns "탄수화물(g) : 123.3<br/>단백질(g) : 31.2" into a key/value map.
func ParseNutrition(raw string) map[string]string {
	nutrition := map[string]string{}
	if raw == "" {
		return nutrition
	}
	for _, item := range strings.Split(raw, lineBreak) {
		key, value, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		nutrition[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return nutrition
}

// ParseCalories returns the numeric part of CAL_INFO ("812.3 Kcal" -> "812.3").
func ParseCalories(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
