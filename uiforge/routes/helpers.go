package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"uiforge/uiforge/middlewares"
	"uiforge/uiforge/utils/apperr"
	httputils "uiforge/uiforge/utils/http"
	"uiforge/uiforge/utils/logging"
	"uiforge/uiforge/utils/types"

	"go.uber.org/zap"
)

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			code := apperr.Status(err)
			msg := err.Error()
			if code == http.StatusInternalServerError {
				logging.ErrorLogger.Error("request failed",
					zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
				msg = "internal server error"
			}
			httputils.WriteError(w, code, msg)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		httputils.WriteJSON(w, status, res)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return apperr.Validation("body", "invalid json: %v", err)
	}
	return nil
}

func listParams(r *http.Request) types.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return types.ListParams{Page: page, Limit: limit, Search: q.Get("search")}.Normalize()
}

func userID(r *http.Request) int {
	return middlewares.UserID(r.Context())
}
