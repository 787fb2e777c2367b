package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/mission-control/internal/api"
	apiMiddleware "github.com/phrazzld/mission-control/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	activityHandler := api.NewActivityHandler(app.publisher, app.hub, app.logger)
	streamHandler := api.NewStreamHandler(app.hub, app.logger)
	notificationHandler := api.NewNotificationHandler(app.queue, app.logger)
	agentHandler := api.NewAgentHandler(app.identities, app.queue, app.logger)
	taskHandler := api.NewTaskHandler(app.registry, app.commentSvc, app.assignments, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.hub, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.serviceTokens, app.logger)
	publishLimit := apiMiddleware.RateLimit(app.config.Stream.PublishRatePerSec, app.config.Stream.PublishBurst)

	// Public endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/api/sse", streamHandler.Stream)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.With(publishLimit).Post("/activities", activityHandler.CreateActivity)
		r.Get("/activities", activityHandler.GetActivityStatus)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.Post("/", notificationHandler.CreateNotification)
			r.Patch("/", notificationHandler.UpdateNotifications)
			r.Post("/deliver", notificationHandler.DeliveryStatus)
			r.Get("/deliver", notificationHandler.DescribeDelivery)
		})

		r.Route("/agents/{name}/notifications", func(r chi.Router) {
			r.Get("/", agentHandler.GetUnread)
			r.Post("/mark-read", agentHandler.MarkRead)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/subscribe", taskHandler.Subscribe)
			r.Get("/subscribe", taskHandler.ListSubscribers)
			r.Post("/comments", taskHandler.PostComment)
			r.Get("/comments", taskHandler.ListComments)
			r.Post("/{id}/assignment", taskHandler.Assign)
			r.Post("/{id}/completion", taskHandler.Complete)
		})
	})

	return r
}
