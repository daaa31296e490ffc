package routes

import (
	"net/http"
	"strconv"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/middlewares"
	"uiforge/uiforge/utils/types"

	"github.com/go-chi/chi/v5"
)

func SessionRoutes(ctrl *controllers.SessionController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			page, err := ctrl.List(r.Context(), userID(r), listParams(r))
			return page, http.StatusOK, err
		}))

		gr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.CreateSessionRequest
			if err := decodeJSON(r, &req); err != nil {
				return nil, 0, err
			}
			s, err := ctrl.Create(r.Context(), userID(r), req)
			return s, http.StatusCreated, err
		}))

		gr.Get("/recent", handleJSON(func(r *http.Request) (any, int, error) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			out, err := ctrl.Recent(r.Context(), userID(r), limit)
			return out, http.StatusOK, err
		}))

		gr.Get("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			s, err := ctrl.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
			return s, http.StatusOK, err
		}))

		gr.Put("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.UpdateSessionRequest
			if err := decodeJSON(r, &req); err != nil {
				return nil, 0, err
			}
			s, err := ctrl.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req)
			return s, http.StatusOK, err
		}))

		gr.Delete("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			return nil, http.StatusNoContent, ctrl.Delete(r.Context(), userID(r), chi.URLParam(r, "id"))
		}))

		gr.Get("/{id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			page, err := ctrl.Messages(r.Context(), userID(r), chi.URLParam(r, "id"), listParams(r))
			return page, http.StatusOK, err
		}))

		gr.Post("/{id}/duplicate", handleJSON(func(r *http.Request) (any, int, error) {
			s, err := ctrl.Duplicate(r.Context(), userID(r), chi.URLParam(r, "id"))
			return s, http.StatusCreated, err
		}))
	})
	return r
}
