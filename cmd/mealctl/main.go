package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealreview/internal/app"
	"mealreview/internal/env"
	"mealreview/internal/identity"
	"mealreview/internal/logging"
	"mealreview/internal/mealapi"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose     bool
	apiURL      string
	sessionFile string
	timeout     time.Duration
)

// deps is built once per invocation by the root command's pre-run hook.
type deps struct {
	logger   *zap.Logger
	client   *mealapi.Client
	identity *identity.Provider
	app      *app.App
}

var d deps

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mealctl",
	Short: "Browse school meals and review them from the terminal",
	Long: `mealctl talks to a MealReview API server.

It shows the NEIS meal menu of a school for a weekday, the reviews other students
left, and lets a signed-in student rate the meals of their own school.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if d.app != nil {
			d.app.Close()
		}
		if d.logger != nil {
			_ = d.logger.Sync()
		}
	},
}

func setup(cmd *cobra.Command, _ []string) error {
	logger, err := logging.NewConsole(verbose)
	if err != nil {
		return err
	}

	path := sessionFile
	if path == "" {
		if path, err = identity.DefaultSessionPath(); err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
	}

	client := mealapi.New(apiURL, mealapi.WithLogger(logger.Named("api")))
	provider, err := identity.NewProvider(identity.NewFileStore(path), client, logger.Named("identity"))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	d = deps{
		logger:   logger,
		client:   client,
		identity: provider,
		app:      app.New(client, provider, logger.Named("app")),
	}
	return nil
}

// commandContext bounds a command by --timeout and interrupts.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", env.GetEnv(env.EnvAPIURL, mealapi.DefaultBaseURL), "MealReview API base URL (or set "+env.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", env.GetEnv(env.EnvSessionFile, ""), "Where the sign-in session is kept (or set "+env.EnvSessionFile+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mealsCmd)
	rootCmd.AddCommand(setSchoolCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(myReviewsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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
