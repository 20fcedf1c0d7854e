// Package httprequest provides the HTTP request node.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	OutputPortSuccess = models.PortSuccess
	OutputPortError   = models.PortError
	InputPortMain     = models.PortMain

	defaultTimeout = 30
)

// maxBodyBytes bounds the response body a node will buffer.
var maxBodyBytes int64 = 10 << 20

// HTTPRequestConfig defines the configuration for HTTP request nodes. URL,
// header values and string bodies are templates.
type HTTPRequestConfig struct {
	URL     string            `json:"url"     validate:"required"`
	Method  string            `json:"method"  validate:"omitempty,oneof=GET POST PUT DELETE PATCH HEAD OPTIONS get post put delete patch head options"`
	Headers map[string]string `json:"headers"`
	// Body is sent as is when it is a string and as JSON otherwise.
	Body           any    `json:"body,omitempty"`
	Timeout        int    `json:"timeout" validate:"omitempty,min=1,max=300"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool   `json:"replaceContext"`
}

// HTTPRequestNode performs one HTTP request inside a durable step.
type HTTPRequestNode struct {
	id     string
	config HTTPRequestConfig
	client *http.Client
}

// NewHTTPRequestNode creates a new HTTP request node.
func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	var cfg HTTPRequestConfig
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "http")

	return &HTTPRequestNode{
		id:     id,
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}, nil
}

// ID returns the node ID.
func (n *HTTPRequestNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *HTTPRequestNode) Type() string {
	return "httprequest"
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// StatusCode lets the error classifier map the response status.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

type request struct {
	url     string
	body    string
	headers map[string]string
}

// Execute renders the request from the context and performs it as the
// "<nodeId>:request" step. Client errors other than 408 and 429 are classified
// inside the step so the runtime does not retry them.
func (n *HTTPRequestNode) Execute(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	req, err := n.render(execCtx)
	if err != nil {
		return execCtx, err
	}

	logger := env.Log().With("node_id", n.id, "method", n.config.Method)

	result, err := env.Step.Run(ctx, env.StepName("request"), func(ctx context.Context) (any, error) {
		logger.DebugContext(ctx, "Performing HTTP request", "url", req.url)

		res, err := n.perform(ctx, req)

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !retriableStatus(httpErr.Code) {
			return nil, failure.Classify(err, "")
		}

		return res, err
	})
	if err != nil {
		return execCtx, err
	}

	return protocol.Result(execCtx, n.config.OutputVariable, result, n.config.ReplaceContext), nil
}

func (n *HTTPRequestNode) render(execCtx models.ExecutionContext) (request, error) {
	req := request{
		url:     strings.TrimSpace(template.Resolve(n.config.URL, execCtx)),
		headers: make(map[string]string, len(n.config.Headers)),
	}

	if req.url == "" {
		return req, failure.Config("url", "resolved to an empty string")
	}

	for key, value := range n.config.Headers {
		req.headers[key] = template.Resolve(value, execCtx)
	}

	switch body := n.config.Body.(type) {
	case nil:
	case string:
		req.body = template.Resolve(body, execCtx)
	default:
		data, err := json.Marshal(template.ResolveValue(body, execCtx))
		if err != nil {
			return req, failure.Config("body", err.Error())
		}

		req.body = string(data)
	}

	return req, nil
}

// perform executes a single HTTP request.
func (n *HTTPRequestNode) perform(ctx context.Context, r request) (map[string]any, error) {
	var reqBody io.Reader
	if r.body != "" {
		reqBody = strings.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, r.url, reqBody)
	if err != nil {
		return nil, failure.Config("url", err.Error())
	}

	for key, value := range r.headers {
		req.Header.Set(key, value)
	}

	if r.body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(respBody)) > maxBodyBytes {
		return nil, &failure.Error{
			Message:   fmt.Sprintf("response body exceeds %d bytes", maxBodyBytes),
			Guidance:  "The endpoint returned more data than a node can hold.",
			FixSteps:  []string{"Request a smaller page or a narrower resource."},
			ErrorCode: failure.CodeInvalidResponse,
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{Code: resp.StatusCode, Message: string(respBody)}
	}

	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}

func retriableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
