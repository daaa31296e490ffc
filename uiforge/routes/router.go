package routes

import (
	"time"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds ordinary handlers; generation runs in the background.
const requestTimeout = 30 * time.Second

type Controllers struct {
	Auth       *controllers.AuthController
	User       *controllers.UserController
	Health     *controllers.HealthController
	Chat       *controllers.ChatController
	Sessions   *controllers.SessionController
	Components *controllers.ComponentController
}

func NewRouter(cfg config.Config, c Controllers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogging)
	r.Use(middleware.Recoverer)

	timed := r.With(middleware.Timeout(requestTimeout))
	timed.Mount("/health", HealthRoutes(c.Health))
	timed.Mount("/auth", AuthRoutes(c.Auth))
	timed.Mount("/users", UserRoutes(c.User, cfg))
	timed.Mount("/sessions", SessionRoutes(c.Sessions, cfg))
	timed.Mount("/components", ComponentRoutes(c.Components, cfg))

	// no timeout here: /chat/ws stays open until the message is final
	r.Mount("/chat", ChatRoutes(c.Chat, cfg))
	return r
}
