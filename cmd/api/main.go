package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealreview/internal/auth"
	"mealreview/internal/common"
	"mealreview/internal/databases"
	"mealreview/internal/env"
	"mealreview/internal/logging"
	"mealreview/internal/neis"
	"mealreview/internal/v0/meals"
	"mealreview/internal/v0/reviews"
	"mealreview/internal/v0/schools"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	logger, err := logging.New(env.GetBool(env.EnvVerbose, false))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	// Auth database
	authDB, err := databases.OpenMigrated(env.GetEnv(env.EnvAuthDBPath, "./internal/databases/auth.db"), databases.Auth)
	if err != nil {
		return err
	}
	defer authDB.Close()

	// Reviews database
	reviewsDB, err := databases.OpenMigrated(env.GetEnv(env.EnvReviewsDBPath, "./internal/databases/reviews.db"), databases.Reviews)
	if err != nil {
		return err
	}
	defer reviewsDB.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := common.NewMetrics(registry)

	// Initialize auth components
	authRepo := auth.NewRepository(authDB)

	// OAuth configuration
	oauthConfig := auth.NewOAuthConfig(
		auth.ProviderConfig{
			ClientID:     env.GetEnv(env.EnvGoogleClientID, ""),
			ClientSecret: env.GetEnv(env.EnvGoogleClientSecret, ""),
		},
		auth.ProviderConfig{
			ClientID:     env.GetEnv(env.EnvGitHubClientID, ""),
			ClientSecret: env.GetEnv(env.EnvGitHubClientSecret, ""),
		},
		env.GetEnv(env.EnvAuthCallbackBaseURL, "http://localhost:9237"),
	)

	// Auth stores
	stateStore := auth.NewOAuthStateStore(authRepo)
	sessionStore := auth.NewSessionStore(authRepo, env.GetDuration(env.EnvSessionDuration, auth.DefaultSessionDuration))
	issuer, err := auth.NewTokenIssuer(env.GetEnv(env.EnvJWTSecret, ""), env.GetDuration(env.EnvAccessTokenTTL, auth.DefaultAccessTokenTTL))
	if err != nil {
		return err
	}

	janitor := auth.NewJanitor(stateStore, sessionStore, logger.Named("janitor"))
	janitor.Start(ctx)
	defer janitor.Stop()

	authHandler := auth.NewHandler(
		authRepo,
		oauthConfig,
		stateStore,
		sessionStore,
		issuer,
		env.GetBool(env.EnvSecureCookies, false),
		logger.Named("auth"),
	)
	authMiddleware := auth.NewMiddleware(authRepo, issuer, sessionStore, logger.Named("auth"))

	// NEIS-backed handlers
	neisClient := neis.New(
		env.GetEnv(env.EnvNEISAPIKey, neis.SampleKey),
		neis.WithBaseURL(env.GetEnv(env.EnvNEISBaseURL, neis.DefaultBaseURL)),
		neis.WithLogger(logger.Named("neis")),
		neis.WithRegisterer(registry),
	)
	schoolHandler := schools.NewHandler(neisClient, logger.Named("schools"))
	mealHandler := meals.NewHandler(neisClient, logger.Named("meals"))

	reviewHandler := reviews.NewHandler(reviews.NewRepository(reviewsDB), logger.Named("reviews"))

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())
	router.GET("/metrics", metrics.Handler())

	// Global routes
	global := router.Group("/api")
	common.RegisterRoutes(global)

	// Auth routes (public + bearer-protected)
	auth.RegisterRoutes(global, authHandler, authMiddleware)
	reviews.RegisterUserRoutes(global, reviewHandler, authMiddleware)

	// v0 API routes
	v0Group := router.Group("/api/v0")
	{
		schools.RegisterRoutes(v0Group, schoolHandler)
		meals.RegisterRoutes(v0Group, mealHandler)
		reviews.RegisterRoutes(v0Group, reviewHandler, authMiddleware)
	}

	server := &http.Server{
		Addr:              env.GetEnv(env.EnvListenAddr, ":9237"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown handling
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
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
