package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AssessmentClient define la interfaz hacia el backend de evaluacion.
type AssessmentClient interface {
	StartSession(ctx context.Context) (StartSessionResult, error)
	Chat(ctx context.Context, userID, sessionID, message string, state json.RawMessage) (ChatResult, error)
	Persona(ctx context.Context, userID, sessionID string, state json.RawMessage) (string, error)
}

type StartSessionResult struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// ChatResult conserva updated_state como bytes crudos: ese blob se reenvia
// verbatim en el siguiente request y no se interpreta aca.
type ChatResult struct {
	Response     string
	UpdatedState json.RawMessage
}

// HTTPClient implementa AssessmentClient contra los tres endpoints HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando al backend de evaluacion.
func NewHTTPClient(baseURL string, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) StartSession(ctx context.Context) (StartSessionResult, error) {
	body, err := c.post(ctx, "/start-session", nil)
	if err != nil {
		return StartSessionResult{}, err
	}

	var res StartSessionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return StartSessionResult{}, fmt.Errorf("unmarshal start-session response: %w", err)
	}
	return res, nil
}

func (c *HTTPClient) Chat(ctx context.Context, userID, sessionID, message string, state json.RawMessage) (ChatResult, error) {
	reqBody := chatRequest{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		State:     state,
	}

	body, err := c.post(ctx, "/chat", reqBody)
	if err != nil {
		return ChatResult{}, err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return ChatResult{}, fmt.Errorf("unmarshal chat response: %w", err)
	}

	return ChatResult{
		Response:     cr.Response,
		UpdatedState: cr.UpdatedState,
	}, nil
}

func (c *HTTPClient) Persona(ctx context.Context, userID, sessionID string, state json.RawMessage) (string, error) {
	reqBody := personaRequest{
		State:     state,
		UserID:    userID,
		SessionID: sessionID,
	}

	body, err := c.post(ctx, "/persona", reqBody)
	if err != nil {
		return "", err
	}

	var pr personaResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("unmarshal persona response: %w", err)
	}
	return pr.Response, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("backend error response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, fmt.Errorf("backend http error: path=%s status=%d", path, resp.StatusCode)
	}

	return respBody, nil
}

type chatRequest struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	State     json.RawMessage `json:"state"`
}

type chatResponse struct {
	Response     string          `json:"response"`
	UpdatedState json.RawMessage `json:"updated_state"`
}

type personaRequest struct {
	State     json.RawMessage `json:"state"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
}

type personaResponse struct {
	Response string `json:"response"`
}
