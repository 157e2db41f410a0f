package connect

import (
	"context"
	"encoding/json"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// EinoTools wraps the connection's tools as Eino invokable tools. Tool names
// are prefixed with the sanitized server name so tools from different servers
// cannot collide in the agent's tool set.
func (c *Connection) EinoTools() []einotool.InvokableTool {
	out := make([]einotool.InvokableTool, 0, len(c.Tools))
	for _, t := range c.Tools {
		out = append(out, &einoTool{
			conn:   c.Conn,
			server: c.Server.Name,
			tool:   t,
		})
	}
	return out
}

// einoTool implements Eino's InvokableTool over a server connection.
type einoTool struct {
	conn   Conn
	server string
	tool   Tool
}

// Info returns the tool metadata with the prefixed name.
func (e *einoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        sanitizeToolName(e.server) + "_" + sanitizeToolName(e.tool.Name),
		Desc:        e.tool.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(parseInputSchemaToParams(e.tool.InputSchema)),
	}, nil
}

// InvokableRun executes the tool on its server with the model's arguments.
func (e *einoTool) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	var args map[string]any
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", err
		}
	}
	return e.conn.Call(ctx, e.tool.Name, args)
}

// parseInputSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseInputSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}

// sanitizeToolName replaces non-alphanumeric chars with underscore.
func sanitizeToolName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
