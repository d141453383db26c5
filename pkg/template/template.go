// Package template renders text templates over the variables of a running workflow.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/flowcore/pkg/protocol"
)

// RenderWithContext renders a template with the workflow variables, the step input
// and the instance identity.
func RenderWithContext(input string, wctx protocol.Context) (any, error) {
	data := map[string]any{
		"variables": wctx.Variables(),
		"vars":      wctx.Variables(),
		"input":     wctx.Input(),
		"workflow": map[string]any{
			"id":             wctx.WorkflowID(),
			"definition_id":  wctx.DefinitionID(),
			"correlation_id": wctx.CorrelationID(),
		},
	}

	return Render(input, data)
}

// RenderString renders a template and formats the result as a string. Templates
// without actions are returned unchanged.
func RenderString(input string, wctx protocol.Context) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	value, err := RenderWithContext(input, wctx)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("render").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
