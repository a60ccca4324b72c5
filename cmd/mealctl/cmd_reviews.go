package main

import (
	"errors"
	"fmt"
	"strconv"

	"mealreview/internal/datecursor"
	"mealreview/internal/mealapi"
	"mealreview/internal/reviewflow"

	"github.com/spf13/cobra"
)

var (
	reviewDate    string
	reviewRating  int
	reviewContent string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Write or delete reviews of your school's meals",
}

var reviewWriteCmd = &cobra.Command{
	Use:   "write <breakfast|lunch|dinner>",
	Short: "Rate a meal of your school",
	Long: `Rate a meal of your school, 1 to 5 stars with an optional comment.

Writing the same meal again replaces your earlier review.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(mealapi.Breakfast), string(mealapi.Lunch), string(mealapi.Dinner)},
	RunE:      runReviewWrite,
}

var reviewDeleteCmd = &cobra.Command{
	Use:   "delete <review id>",
	Short: "Delete one of your reviews",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewDelete,
}

var myReviewsCmd = &cobra.Command{
	Use:   "my-reviews",
	Short: "List the reviews you wrote",
	RunE:  runMyReviews,
}

func init() {
	reviewWriteCmd.Flags().StringVarP(&reviewDate, "date", "d", "", "Day of the meal (YYYY-MM-DD or YYYYMMDD, default next weekday)")
	reviewWriteCmd.Flags().IntVarP(&reviewRating, "rating", "r", 0, "Stars, 1 to 5")
	reviewWriteCmd.Flags().StringVarP(&reviewContent, "content", "c", "", "Comment")
	_ = reviewWriteCmd.MarkFlagRequired("rating")

	reviewCmd.AddCommand(reviewWriteCmd)
	reviewCmd.AddCommand(reviewDeleteCmd)
}

// userFacing swaps an error for the message the review dialog would show.
func userFacing(err error) error {
	return errors.New(reviewflow.FailureMessage(err))
}

func runReviewWrite(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a := d.app
	a.Start(ctx)
	if reviewDate != "" {
		day, err := datecursor.Parse(reviewDate)
		if err != nil {
			return err
		}
		a.SetDate(ctx, day)
	}

	existing, err := a.OpenReview(mealapi.ParseMealType(args[0]))
	if err != nil {
		return userFacing(err)
	}
	review, err := a.SubmitReview(ctx, reviewRating, reviewContent)
	if err != nil {
		return userFacing(err)
	}

	verb := "Saved"
	if existing != nil {
		verb = "Updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s review %d: %s %s\n", verb, review.ID, stars(review.Rating), review.Content)
	return nil
}

func runReviewDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid review id %q", args[0])
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := d.app.DeleteReview(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted review %d\n", id)
	return nil
}

func runMyReviews(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	reviews, err := d.app.MyReviews(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(reviews) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("작성한 리뷰가 없습니다"))
		return nil
	}
	for _, r := range reviews {
		day := r.MealDate
		if t, err := datecursor.Parse(r.MealDate); err == nil {
			day = datecursor.Label(t)
		}
		fmt.Fprintf(out, "#%d  %s %s  %s %s\n", r.ID, day, r.MealType.WireName(), stars(r.Rating), r.Content)
	}
	return nil
}
