package types

import "time"

// GenerateRequest is the body of POST /chat/generate.
type GenerateRequest struct {
	SessionID   string   `json:"sessionId,omitempty"`
	Message     string   `json:"message"`
	Images      []Image  `json:"images,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type Image struct {
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// GenerateResponse is returned as soon as both messages exist.
type GenerateResponse struct {
	SessionID          string `json:"sessionId"`
	UserMessageID      string `json:"userMessageId"`
	AssistantMessageID string `json:"assistantMessageId"`
	Status             string `json:"status"`
	Model              string `json:"model"`
}

// AddMessageRequest is the body of POST /chat/message.
type AddMessageRequest struct {
	SessionID string  `json:"sessionId"`
	Role      string  `json:"role"`
	Text      string  `json:"text"`
	Images    []Image `json:"images,omitempty"`
	Code      *Code   `json:"code,omitempty"`
}

type Code struct {
	JSX   string                 `json:"jsx"`
	CSS   string                 `json:"css"`
	Props map[string]interface{} `json:"props,omitempty"`
}

type UpdateMessageRequest struct {
	Text string `json:"text"`
}

type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Vendor      string `json:"vendor,omitempty"`
	Description string `json:"description,omitempty"`
}

// MessageEvent is pushed to websocket subscribers on every status change.
type MessageEvent struct {
	MessageID string    `json:"messageId"`
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"errorKind,omitempty"`
	At        time.Time `json:"at"`
}
