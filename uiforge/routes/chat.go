package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"uiforge/uiforge/config"
	"uiforge/uiforge/controllers"
	"uiforge/uiforge/middlewares"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/apperr"
	"uiforge/uiforge/utils/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const wsHandshakeTimeout = 10 * time.Second

func ChatRoutes(ctrl *controllers.ChatController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/models", handleJSON(func(r *http.Request) (any, int, error) {
			return ctrl.GetAvailableModels(), http.StatusOK, nil
		}))

		// POST /chat/generate : acknowledge now, generate in the background
		gr.Post("/generate", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.GenerateRequest
			if err := decodeJSON(r, &req); err != nil {
				return nil, 0, err
			}
			resp, err := ctrl.GenerateComponent(r.Context(), userID(r), req)
			return resp, http.StatusAccepted, err
		}))

		gr.Post("/message", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.AddMessageRequest
			if err := decodeJSON(r, &req); err != nil {
				return nil, 0, err
			}
			m, err := ctrl.AddMessage(r.Context(), userID(r), req)
			return m, http.StatusCreated, err
		}))

		gr.Get("/messages/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			m, err := ctrl.GetMessage(r.Context(), userID(r), chi.URLParam(r, "id"))
			return m, http.StatusOK, err
		}))

		gr.Put("/messages/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.UpdateMessageRequest
			if err := decodeJSON(r, &req); err != nil {
				return nil, 0, err
			}
			m, err := ctrl.UpdateMessage(r.Context(), userID(r), chi.URLParam(r, "id"), req)
			return m, http.StatusOK, err
		}))

		gr.Delete("/messages/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			return nil, http.StatusNoContent, ctrl.DeleteMessage(r.Context(), userID(r), chi.URLParam(r, "id"))
		}))

		gr.Post("/messages/{id}/cancel", handleJSON(func(r *http.Request) (any, int, error) {
			m, err := ctrl.CancelMessage(r.Context(), userID(r), chi.URLParam(r, "id"))
			return m, http.StatusOK, err
		}))
	})

	// Browsers cannot set headers on a websocket, so the token comes in the
	// first frame together with the message to follow.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")
		streamMessageStatus(r.Context(), conn, ctrl, cfg)
	})
	return r
}

func streamMessageStatus(ctx context.Context, conn *websocket.Conn, ctrl *controllers.ChatController, cfg config.Config) {
	readCtx, cancel := context.WithTimeout(ctx, wsHandshakeTimeout)
	typ, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		return
	}
	if typ != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "unsupported data")
		return
	}
	var input struct {
		Token     string `json:"token"`
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &input); err != nil {
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid json"}`))
		conn.Close(websocket.StatusPolicyViolation, "invalid json")
		return
	}
	uid, err := middlewares.ParseUserID(cfg.JWTSecret, input.Token)
	if err != nil {
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid token"}`))
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}

	msgID, err := uuid.Parse(input.MessageID)
	if err != nil {
		conn.Write(ctx, websocket.MessageText, []byte(`{"error":"invalid message_id"}`))
		conn.Close(websocket.StatusPolicyViolation, "invalid message_id")
		return
	}

	// no more frames are expected; ctx ends when the client goes away
	ctx = conn.CloseRead(ctx)

	// subscribe before reading the current state so no transition slips between
	updates, unsubscribe := ctrl.Subscribe(msgID.String())
	defer unsubscribe()

	state, err := ctrl.MessageState(ctx, uid, msgID.String())
	if err != nil {
		msg := "internal error"
		if apperr.Status(err) != http.StatusInternalServerError {
			msg = err.Error()
		}
		wsjson.Write(ctx, conn, map[string]string{"error": msg})
		conn.Close(websocket.StatusPolicyViolation, "unknown message")
		return
	}
	if err := wsjson.Write(ctx, conn, state); err != nil {
		return
	}
	if models.MessageStatus(state.Status).Terminal() {
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
			if models.MessageStatus(ev.Status).Terminal() {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}
