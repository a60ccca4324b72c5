package main

import (
	"fmt"

	"mealreview/internal/identity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginRefreshToken string

// loginCmd signs in with a refresh token from the OAuth callback
var loginCmd = &cobra.Command{
	Use:   "login [google|github]",
	Short: "Sign in to MealReview",
	Long: `Sign in to MealReview.

Without --refresh-token the command prints the provider's sign-in URL. Open it in a
browser; the callback answers with a token pair. Run the command again with the
refresh_token from that answer to store the session.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"google", "github"},
	RunE:      runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and their school",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&loginRefreshToken, "refresh-token", "", "Refresh token returned by the OAuth callback")
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if loginRefreshToken == "" {
		provider := "google"
		if len(args) == 1 {
			provider = args[0]
		}
		fmt.Fprintf(out, "Open this URL in a browser to sign in:\n\n  %s\n\n", d.client.LoginURL(provider))
		fmt.Fprintln(out, "Then run: mealctl login --refresh-token <refresh_token>")
		return nil
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	pair, err := d.client.RefreshToken(ctx, loginRefreshToken)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	session := &identity.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Expiry:       pair.ExpiresAt,
		User:         pair.User,
	}
	if err := d.identity.SignIn(ctx, session); err != nil {
		return err
	}

	if pair.User != nil {
		fmt.Fprintf(out, "Signed in as %s\n", pair.User.Email)
	} else {
		fmt.Fprintln(out, "Signed in")
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if d.identity.Current() == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}
	if err := d.identity.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	token, err := d.identity.Token(ctx)
	if err != nil {
		return err
	}
	user, err := d.client.GetMe(ctx, token)
	if err != nil {
		return err
	}
	if err := d.identity.SetUser(user); err != nil {
		d.logger.Warn("Failed to store profile", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
	if user.HasSchool() {
		fmt.Fprintf(out, "School: %s (%s, %s)\n", user.SchoolName, user.SchoolCode, user.OfficeCode)
	} else {
		fmt.Fprintln(out, "School: not set (run mealctl set-school <name>)")
	}
	return nil
}
