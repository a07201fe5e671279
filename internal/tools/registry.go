// Package tools defines the tool vocabulary voice agents may invoke and the
// uniform {success, ...} envelope every call returns.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("job-voice/tools")

// Property describes one tool parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     string   `json:"default,omitempty"`

	// AllowEmpty accepts "" for a required parameter; only its absence is
	// reported as missing.
	AllowEmpty bool `json:"-"`
}

// Schema is the JSON schema of a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Definition is what capability listing advertises for a tool.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Args are decoded call arguments.
type Args map[string]any

// String returns the argument as a string. Numbers and booleans are
// formatted; absent or null arguments report false.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// Result is the uniform envelope. It always carries "success".
type Result map[string]any

// Success reports the envelope's success flag.
func (r Result) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// HandlerFunc executes a tool call whose required arguments are present.
type HandlerFunc func(ctx context.Context, args Args) (Result, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition Definition
	Handler    HandlerFunc
}

// Registry dispatches calls by tool name.
type Registry struct {
	byName map[string]Tool
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger, tools ...Tool) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{byName: make(map[string]Tool, len(tools)), logger: logger.Named("tools")}
	for _, t := range tools {
		r.byName[t.Definition.Name] = t
	}
	return r
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions lists every tool sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.byName))
	for _, name := range r.Names() {
		defs = append(defs, r.byName[name].Definition)
	}
	return defs
}

// Call runs a tool. Every failure inside the tool becomes a success:false
// envelope; only an unknown name is reported as an error.
func (r *Registry) Call(ctx context.Context, name string, args Args) (Result, error) {
	name = strings.TrimSpace(name)
	t, ok := r.byName[name]
	if !ok {
		return nil, apperr.UnsupportedMethod(name)
	}

	ctx, span := tracer.Start(ctx, "tool."+name)
	defer span.End()
	span.SetAttributes(telemetry.String("tool", name))

	if args == nil {
		args = Args{}
	}

	var missing []string
	schema := t.Definition.InputSchema
	for _, param := range schema.Required {
		v, ok := args.String(param)
		if !ok || (!schema.Properties[param].AllowEmpty && strings.TrimSpace(v) == "") {
			missing = append(missing, param)
		}
	}
	if len(missing) > 0 {
		span.SetAttributes(telemetry.Bool("success", false))
		return Result{
			"success":        false,
			"error":          "missing required parameters: " + strings.Join(missing, ", "),
			"missing_params": missing,
		}, nil
	}

	res, err := t.Handler(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.Bool("success", false))
		r.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return errorResult(err), nil
	}
	if res == nil {
		res = Result{}
	}
	res["success"] = true
	span.SetAttributes(telemetry.Bool("success", true))
	return res, nil
}

func errorResult(err error) Result {
	res := Result{
		"success":    false,
		"error":      apperr.Message(err),
		"error_type": string(apperr.TypeOf(err)),
	}
	if missing := apperr.MissingFields(err); len(missing) > 0 {
		res["missing_fields"] = missing
	}
	return res
}
