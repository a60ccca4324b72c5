package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	headStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	starStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1)
)

// stars renders a 1-5 rating as filled and empty stars.
func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return starStyle.Render(strings.Repeat("★", rating)) + mutedStyle.Render(strings.Repeat("☆", 5-rating))
}

func average(avg float64, count int) string {
	if count == 0 {
		return mutedStyle.Render("아직 리뷰가 없습니다")
	}
	return fmt.Sprintf("%s %.1f (%d)", starStyle.Render("★"), avg, count)
}
