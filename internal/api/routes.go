package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	if handler.metrics != nil {
		app.Get("/metrics", handler.metrics.Handler())
	}
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.AuthRequired, handler.Logout)
	auth.Get("/profile", handler.AuthRequired, handler.GetProfile)
	auth.Put("/profile", handler.AuthRequired, handler.UpdateProfile)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)

	challenges := api.Group("/challenges", handler.AuthRequired)
	challenges.Get("", handler.ListChallenges)
	challenges.Post("", handler.AdminOnly, handler.CreateChallenge)
	challenges.Post("/generate", handler.GenerateChallenges)
	challenges.Get("/my-challenges", handler.MyChallenges)
	challenges.Get("/:id", handler.GetChallenge)
	challenges.Put("/:id", handler.AdminOnly, handler.UpdateChallenge)
	challenges.Delete("/:id", handler.AdminOnly, handler.DeleteChallenge)
	challenges.Post("/:id/join", handler.JoinChallenge)
	challenges.Post("/:id/progress", handler.MarkProgress)
	challenges.Get("/:id/history", handler.ProgressHistory)
	challenges.Delete("/:id/leave", handler.LeaveChallenge)
}
