package routes

import (
	"net/http"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/middlewares"

	"github.com/go-chi/chi/v5"
)

func UserRoutes(ctrl *controllers.UserController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))
		gr.Get("/me", handleJSON(func(r *http.Request) (any, int, error) {
			user, err := ctrl.Me(r.Context(), userID(r))
			return user, http.StatusOK, err
		}))
	})
	return r
}
