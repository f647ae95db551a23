// Package mcpgw implements the MCP tool executor.
//
// Tools are plain HTTP endpoints configured in the console. The executor
// resolves a tool endpoint against the configured server, applies auth
// headers, sends the call and normalises the outcome into a ToolResult.
// Failed calls are results, not errors; only a missing server configuration
// is reported as an error so callers can fall back to a simulated result.
package mcpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orquestra/console/internal/pacing"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotConfigured is returned when no MCP server URL is configured.
var ErrNotConfigured = errors.New("MCP server is not configured")

// DefaultDelay is the artificial latency applied before each call.
const DefaultDelay = 500 * time.Millisecond

var tracer = otel.Tracer("orquestra/mcpgw")

// Executor invokes MCP tools over HTTP.
type Executor struct {
	client  *http.Client
	sleeper pacing.Sleeper
	delay   time.Duration
}

// Option customises an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

// WithPacing sets the sleeper and the artificial delay before each call.
func WithPacing(s pacing.Sleeper, d time.Duration) Option {
	return func(e *Executor) {
		e.sleeper = s
		e.delay = d
	}
}

// NewExecutor creates an executor. No request timeout is set beyond the
// caller's context.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		client:  &http.Client{},
		sleeper: pacing.Real{},
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveURL joins a tool endpoint with the server base URL. Absolute
// endpoints are used as-is.
func ResolveURL(serverURL, endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	return strings.TrimRight(serverURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// Execute calls tool with params. It returns ErrNotConfigured, before any
// network activity, when the server has no URL. Every other failure is
// reported through the returned result.
func (e *Executor) Execute(ctx context.Context, server *models.MCPServerConfig, tool *models.MCPTool, params map[string]any) (*models.ToolResult, error) {
	if server == nil || strings.TrimSpace(server.ServerURL) == "" {
		return nil, ErrNotConfigured
	}

	method := tool.EffectiveMethod()
	target := ResolveURL(server.ServerURL, tool.Endpoint)

	ctx, span := tracer.Start(ctx, "mcpgw.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.id", tool.ID),
		attribute.String("tool.method", method),
		attribute.String("tool.endpoint", target),
	)

	result := &models.ToolResult{
		ToolName: tool.Name,
		Method:   method,
		Endpoint: target,
	}

	fail := func(msg string) (*models.ToolResult, error) {
		result.Success = false
		result.Error = msg
		result.Timestamp = time.Now().UTC()
		span.SetStatus(codes.Error, msg)
		log.Warn().Str("tool", tool.ID).Str("endpoint", target).Str("error", msg).Msg("Tool call failed")
		return result, nil
	}

	if err := e.sleeper.Sleep(ctx, e.delay); err != nil {
		return fail(err.Error())
	}

	req, err := buildRequest(ctx, method, target, params)
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if tool.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+tool.AuthKey)
	}
	if server.APIKey != "" {
		req.Header.Set("X-API-Key", server.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fail(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Sprintf("read response: %v", err))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = resp.Status
		}
		return fail(text)
	}

	result.Success = true
	result.Result = decodeBody(body)
	result.Timestamp = time.Now().UTC()

	log.Info().
		Str("tool", tool.ID).
		Str("method", method).
		Int("status", resp.StatusCode).
		Msg("Tool call succeeded")
	return result, nil
}

func buildRequest(ctx context.Context, method, target string, params map[string]any) (*http.Request, error) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if params == nil {
			params = map[string]any{}
		}
		body, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		return http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))

	case http.MethodGet:
		if len(params) > 0 {
			u, err := url.Parse(target)
			if err != nil {
				return nil, fmt.Errorf("parse endpoint: %w", err)
			}
			q := u.Query()
			for k, v := range params {
				q.Set(k, fmt.Sprint(v))
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
		return http.NewRequestWithContext(ctx, method, target, nil)

	default:
		return http.NewRequestWithContext(ctx, method, target, nil)
	}
}

// decodeBody returns parsed JSON when the body is JSON, else the raw text.
func decodeBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

// Simulated returns the no-op result used when no server is configured.
func Simulated(call models.ToolCall) *models.ToolResult {
	return &models.ToolResult{
		Success:   true,
		ToolName:  call.ToolID,
		Simulated: true,
		Result: map[string]any{
			"message": "Ferramenta simulada: nenhum servidor MCP configurado",
			"params":  call.Params,
		},
		Timestamp: time.Now().UTC(),
	}
}

// TestConnection checks that the configured server answers. Any HTTP
// response below 500 counts as reachable.
func (e *Executor) TestConnection(ctx context.Context, server *models.MCPServerConfig) error {
	if server == nil || strings.TrimSpace(server.ServerURL) == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if server.APIKey != "" {
		req.Header.Set("X-API-Key", server.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server responded %s", resp.Status)
	}
	return nil
}
