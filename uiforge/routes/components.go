package routes

import (
	"net/http"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/middlewares"

	"github.com/go-chi/chi/v5"
)

func ComponentRoutes(ctrl *controllers.ComponentController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			page, err := ctrl.List(r.Context(), userID(r), r.URL.Query().Get("category"), listParams(r))
			return page, http.StatusOK, err
		}))
		gr.Get("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			c, err := ctrl.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
			return c, http.StatusOK, err
		}))
		gr.Get("/{id}/versions", handleJSON(func(r *http.Request) (any, int, error) {
			out, err := ctrl.Versions(r.Context(), userID(r), chi.URLParam(r, "id"))
			return out, http.StatusOK, err
		}))
		gr.Get("/{id}/snapshot", handleJSON(func(r *http.Request) (any, int, error) {
			snap, err := ctrl.Snapshot(r.Context(), userID(r), chi.URLParam(r, "id"))
			return snap, http.StatusOK, err
		}))
	})
	return r
}
