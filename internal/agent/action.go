package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/warden/internal/safety"
	"github.com/haasonsaas/warden/pkg/models"
)

// ActionKind identifies the side effect a tool call requests.
type ActionKind string

const (
	ActionCommand    ActionKind = "command"
	ActionFileWrite  ActionKind = "file_write"
	ActionFileDelete ActionKind = "file_delete"
	ActionPackage    ActionKind = "package"
)

// Tool names the provider may call.
const (
	ToolRunCommand    = "run_command"
	ToolWriteFile     = "write_file"
	ToolDeleteFile    = "delete_file"
	ToolManagePackage = "manage_package"
)

// Action is a parsed, classifiable tool call.
type Action struct {
	Kind ActionKind
	Call models.ToolCall

	// Command is set for ActionCommand.
	Command string

	// Path and Content are set for file actions.
	Path    string
	Content string

	// PkgAction ("install"|"remove") and Package are set for ActionPackage.
	PkgAction string
	Package   string
}

// Describe returns a short human-readable rendering of the action.
func (a *Action) Describe() string {
	switch a.Kind {
	case ActionCommand:
		return a.Command
	case ActionFileWrite:
		return "write " + a.Path
	case ActionFileDelete:
		return "delete " + a.Path
	case ActionPackage:
		return a.PkgAction + " " + a.Package
	}
	return string(a.Kind)
}

// ParseAction decodes a provider tool call into an Action.
func ParseAction(call models.ToolCall) (*Action, error) {
	switch call.Name {
	case ToolRunCommand:
		var args struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return nil, fmt.Errorf("run_command: invalid input: %w", err)
		}
		if args.Command == "" {
			return nil, fmt.Errorf("run_command: command is required")
		}
		return &Action{Kind: ActionCommand, Call: call, Command: args.Command}, nil

	case ToolWriteFile:
		var args struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return nil, fmt.Errorf("write_file: invalid input: %w", err)
		}
		if args.Path == "" {
			return nil, fmt.Errorf("write_file: path is required")
		}
		return &Action{Kind: ActionFileWrite, Call: call, Path: args.Path, Content: args.Content}, nil

	case ToolDeleteFile:
		var args struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return nil, fmt.Errorf("delete_file: invalid input: %w", err)
		}
		if args.Path == "" {
			return nil, fmt.Errorf("delete_file: path is required")
		}
		return &Action{Kind: ActionFileDelete, Call: call, Path: args.Path}, nil

	case ToolManagePackage:
		var args struct {
			Action  string `json:"action"`
			Package string `json:"package"`
		}
		if err := json.Unmarshal(call.Input, &args); err != nil {
			return nil, fmt.Errorf("manage_package: invalid input: %w", err)
		}
		if args.Action == "" || args.Package == "" {
			return nil, fmt.Errorf("manage_package: action and package are required")
		}
		return &Action{Kind: ActionPackage, Call: call, PkgAction: args.Action, Package: args.Package}, nil
	}

	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

// Classify runs the action through the safety guard.
func (a *Action) Classify(guard *safety.Guard) safety.RiskCheck {
	switch a.Kind {
	case ActionCommand:
		return guard.CheckCommand(a.Command)
	case ActionFileWrite:
		return guard.CheckFileWrite(a.Path)
	case ActionFileDelete:
		return guard.CheckFileDelete(a.Path)
	case ActionPackage:
		return guard.CheckPackageOperation(a.PkgAction, a.Package)
	}
	return safety.RiskCheck{Level: safety.RiskSafe, Allowed: true}
}

// Runner executes approved actions against the host.
type Runner interface {
	Run(ctx context.Context, action *Action) (string, error)
}

// Tools returns the tool definitions offered to the provider.
func Tools() []ToolDef {
	return []ToolDef{
		{
			Name:        ToolRunCommand,
			Description: "Run a shell command and return its output.",
			Schema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "description": "The shell command to run"}
				},
				"required": ["command"]
			}`),
		},
		{
			Name:        ToolWriteFile,
			Description: "Write content to a file, creating it if needed.",
			Schema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Absolute path of the file"},
					"content": {"type": "string", "description": "Content to write"}
				},
				"required": ["path", "content"]
			}`),
		},
		{
			Name:        ToolDeleteFile,
			Description: "Delete a file. A backup is created first.",
			Schema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Absolute path of the file"}
				},
				"required": ["path"]
			}`),
		},
		{
			Name:        ToolManagePackage,
			Description: "Install or remove a system package.",
			Schema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"action": {"type": "string", "enum": ["install", "remove"]},
					"package": {"type": "string", "description": "Package name"}
				},
				"required": ["action", "package"]
			}`),
		},
	}
}
