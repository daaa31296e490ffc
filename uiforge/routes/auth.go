package routes

import (
	"net/http"

	"uiforge/uiforge/controllers"
	"uiforge/uiforge/utils/types"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(ctrl *controllers.AuthController) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, 0, err
		}
		token, err := ctrl.Login(r.Context(), req.Username)
		if err != nil {
			return nil, 0, err
		}
		return types.LoginResponse{Token: token}, http.StatusOK, nil
	}))
	return r
}
