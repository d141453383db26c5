// Package httprequest provides the HTTP task: a synchronous outbound call whose
// response is stored in the workflow variables.
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

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/template"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultAttempts = 1
)

// HTTPTask performs one request when it starts and completes along its selected
// flows. A failed request faults the node.
type HTTPTask struct {
	nodes.Base

	id     string
	config Config
	client *http.Client
}

type Config struct {
	URL            string
	Method         string
	Headers        map[string]string
	Body           string
	Timeout        time.Duration
	Attempts       int
	Delay          time.Duration
	ResultVariable string
}

func NewHTTPTask(id string, config map[string]any) (*HTTPTask, error) {
	url, err := nodes.RequiredString(config, "url")
	if err != nil {
		return nil, err
	}

	method, err := nodes.String(config, "method")
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = http.MethodGet
	}

	headers, err := nodes.StringMap(config, "headers")
	if err != nil {
		return nil, err
	}

	body, err := nodes.String(config, "body")
	if err != nil {
		return nil, err
	}

	resultVariable, err := nodes.String(config, "result_variable")
	if err != nil {
		return nil, err
	}

	if resultVariable == "" {
		resultVariable = id
	}

	httpConfig := Config{
		URL:            url,
		Method:         strings.ToUpper(method),
		Headers:        headers,
		Body:           body,
		Timeout:        defaultTimeout,
		Attempts:       defaultAttempts,
		ResultVariable: resultVariable,
	}

	if timeout, ok := config["timeout"].(float64); ok {
		httpConfig.Timeout = time.Duration(timeout) * time.Second
	}

	if retries, ok := config["retries"].(map[string]any); ok {
		if attempts, ok := retries["attempts"].(float64); ok {
			httpConfig.Attempts = int(attempts)
		}

		if delay, ok := retries["delay"].(float64); ok {
			httpConfig.Delay = time.Duration(delay) * time.Millisecond
		}
	}

	return &HTTPTask{
		id:     id,
		config: httpConfig,
		client: &http.Client{Timeout: httpConfig.Timeout},
	}, nil
}

func (n *HTTPTask) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	url, err := template.RenderString(n.config.URL, wctx)
	if err != nil {
		return protocol.Fault(fmt.Sprintf("failed to render url: %v", err)), nil
	}

	body, err := renderBody(n.config.Body, wctx)
	if err != nil {
		return protocol.Fault(fmt.Sprintf("failed to render body: %v", err)), nil
	}

	headers := make(map[string]string, len(n.config.Headers))

	for key, value := range n.config.Headers {
		rendered, err := template.RenderString(value, wctx)
		if err != nil {
			rendered = value
		}

		headers[key] = rendered
	}

	var lastErr error

	for attempt := 1; attempt <= n.config.Attempts; attempt++ {
		if attempt > 1 && n.config.Delay > 0 {
			select {
			case <-ctx.Done():
				return protocol.Fault(ctx.Err().Error()), nil
			case <-time.After(n.config.Delay):
			}
		}

		response, err := n.do(ctx, url, body, headers)
		if err == nil {
			assigned := map[string]any{n.config.ResultVariable: response}

			return nodes.PassThrough(ctx, nodes.WithVariables(wctx, assigned), node).WithVariables(assigned), nil
		}

		lastErr = err

		// client errors are not retried
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
			break
		}
	}

	wctx.Logger().WarnContext(ctx, "HTTP task failed", "node_id", n.id, "url", url, "error", lastErr)

	return protocol.Fault(fmt.Sprintf("request failed: %v", lastErr)), nil
}

// renderBody keeps JSON bodies as JSON once the template parsed them.
func renderBody(body string, wctx protocol.Context) (string, error) {
	if !strings.Contains(body, "{{") {
		return body, nil
	}

	value, err := template.RenderWithContext(body, wctx)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(encoded), nil
	}
}

// HTTPError is a response with a status of 400 or above.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (n *HTTPTask) do(ctx context.Context, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}
