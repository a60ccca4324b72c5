package main

import (
	"fmt"
	"io"
	"strings"

	"mealreview/internal/app"
	"mealreview/internal/datecursor"
	"mealreview/internal/mealapi"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	mealsDate  string
	mealsStep  int
	schoolCode string
)

var searchCmd = &cobra.Command{
	Use:   "search <school name>",
	Short: "Search schools by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

// mealsCmd shows one weekday of a school
var mealsCmd = &cobra.Command{
	Use:   "meals [school name]",
	Short: "Show the meals and reviews of a day",
	Long: `Show the meals, reviews and ratings of a school for one weekday.

Without a school name the signed-in user's school is shown. Weekends are skipped:
without --date the next weekday from today is used, and --step moves by weekdays.`,
	RunE: runMeals,
}

var setSchoolCmd = &cobra.Command{
	Use:   "set-school <school name>",
	Short: "Set your school",
	Long: `Set the school whose meals you may review.

When the name matches several schools, pass --code to pick one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSetSchool,
}

func init() {
	mealsCmd.Flags().StringVarP(&mealsDate, "date", "d", "", "Day to show (YYYY-MM-DD or YYYYMMDD)")
	mealsCmd.Flags().IntVar(&mealsStep, "step", 0, "Move this many weekdays forward (negative for backward)")
	setSchoolCmd.Flags().StringVar(&schoolCode, "code", "", "School code to pick among several matches")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	schools, err := d.client.SearchSchools(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(schools) == 0 {
		fmt.Fprintln(out, app.ErrNoSchoolFound)
		return nil
	}
	for _, s := range schools {
		fmt.Fprintf(out, "%s  %s %s\n", headStyle.Render(s.Name), mutedStyle.Render(s.Code+"/"+s.OfficeCode), s.Address)
	}
	return nil
}

func runMeals(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a := d.app
	if len(args) > 0 {
		if _, err := a.Search(ctx, strings.Join(args, " ")); err != nil {
			return err
		}
	} else {
		a.Start(ctx)
		if a.View().School == nil {
			return fmt.Errorf("no school to show: pass a school name or run mealctl set-school")
		}
	}

	if mealsDate != "" {
		day, err := datecursor.Parse(mealsDate)
		if err != nil {
			return err
		}
		a.SetDate(ctx, day)
	}
	for ; mealsStep > 0; mealsStep-- {
		a.NextDay(ctx)
	}
	for ; mealsStep < 0; mealsStep++ {
		a.PrevDay(ctx)
	}

	printDay(cmd.OutOrStdout(), a)
	return nil
}

func printDay(out io.Writer, a *app.App) {
	v := a.View()
	fmt.Fprintln(out, titleStyle.Render(v.School.Name)+"  "+mutedStyle.Render(datecursor.Label(v.Date)))
	fmt.Fprintf(out, "학교 평점 %s\n\n", average(v.Data.Stats.AverageRating, v.Data.Stats.ReviewCount))

	var cards []string
	for _, t := range mealapi.MealTypes {
		var b strings.Builder
		b.WriteString(headStyle.Render(t.WireName()))
		b.WriteString("\n")

		meal, ok := v.Data.Meals.Meal(t)
		if !ok {
			b.WriteString(mutedStyle.Render("급식 정보가 없습니다"))
			cards = append(cards, boxStyle.Render(b.String()))
			continue
		}
		for _, dish := range meal.Dishes {
			b.WriteString(dish + "\n")
		}
		if meal.Calories != "" {
			b.WriteString(mutedStyle.Render(meal.Calories) + "\n")
		}
		stats := a.StatsFor(t)
		b.WriteString(average(stats.Average, stats.Count))
		for _, r := range v.Data.Reviews {
			if r.MealType != t {
				continue
			}
			b.WriteString("\n" + stars(r.Rating))
			if r.Content != "" {
				b.WriteString(" " + r.Content)
			}
		}
		cards = append(cards, boxStyle.Render(b.String()))
	}
	fmt.Fprintln(out, lipgloss.JoinVertical(lipgloss.Left, cards...))
}

func runSetSchool(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	schools, err := d.client.SearchSchools(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	var picked *mealapi.School
	for i := range schools {
		if schoolCode == "" || schools[i].Code == schoolCode {
			picked = &schools[i]
			break
		}
	}
	if picked == nil {
		return app.ErrNoSchoolFound
	}
	if schoolCode == "" && len(schools) > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d schools match; using %s (pass --code to choose)\n", len(schools), picked.Code)
	}

	d.app.Start(ctx)
	if err := d.app.SelectSchool(ctx, *picked); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "School set to %s\n", picked.Name)
	return nil
}
