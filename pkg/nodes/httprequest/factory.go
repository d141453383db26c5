package httprequest

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "httpTask"

type HTTPTaskFactory struct{}

func NewHTTPTaskFactory() protocol.NodeFactory {
	return &HTTPTaskFactory{}
}

func (f *HTTPTaskFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewHTTPTask(id, config)
}

func (f *HTTPTaskFactory) ID() string {
	return TypeID
}

func (f *HTTPTaskFactory) Name() string {
	return "HTTP Task"
}

func (f *HTTPTaskFactory) Description() string {
	return "Performs an HTTP request while the step runs and stores the response in a workflow variable"
}

// Schema returns the JSON schema for HTTP task configuration.
func (f *HTTPTaskFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "HTTP URL to request. Supports templating over the workflow variables",
				"examples": []string{
					"https://api.example.com/users",
					"https://{{.vars.api_host}}/orders/{{.vars.order_id}}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
				"description":          "HTTP headers. Values support templating",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating",
			},
			"result_variable": map[string]any{
				"type":        "string",
				"description": "Variable receiving {status_code, body, json}; defaults to the node id",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
			"retries": map[string]any{
				"type":        "object",
				"description": "Retry configuration for server and network errors",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":    "number",
						"default": 1,
						"minimum": 1,
						"maximum": 10,
					},
					"delay": map[string]any{
						"type":        "number",
						"description": "Delay between attempts in milliseconds",
						"minimum":     0,
						"maximum":     30000,
					},
				},
			},
		},
		"required": []string{"url"},
	}
}
