// Package template resolves {{...}} references in node configuration against the execution context.
//
// Supported tokens:
//
//	{{path}}        dot-path lookup (a.b.0.c), rendered as text
//	{{json path}}   dot-path lookup, rendered as JSON
//	{{jq filter}}   jq filter over the whole context, first result rendered as text
//
// Unresolved references render as the empty string ("null" for the json form).
// Use ResolveStrict to fail instead.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/nodeflow/pkg/models"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"

	jsonPrefix = "json "
	jqPrefix   = "jq "
)

// ErrUnresolved is returned by ResolveStrict when a reference has no value.
var ErrUnresolved = errors.New("unresolved template reference")

// Trace describes one resolution, for diagnostics only.
type Trace struct {
	Template      string
	Resolved      string
	AvailableKeys []string
	Unresolved    []string
}

type Option func(*Resolver)

// WithDebug installs a hook called after every resolution of a string containing tokens.
func WithDebug(hook func(Trace)) Option {
	return func(r *Resolver) {
		r.debug = hook
	}
}

// WithLogger sets the logger used for debug traces when no hook is installed.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

type Resolver struct {
	debug  func(Trace)
	logger *slog.Logger
}

func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default().With("module", "template")}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

var defaultResolver = New()

// Resolve substitutes every token of tpl using the default resolver.
func Resolve(tpl string, execCtx models.ExecutionContext) string {
	return defaultResolver.Resolve(tpl, execCtx)
}

// ResolveStrict is Resolve but fails when a reference cannot be resolved.
func ResolveStrict(tpl string, execCtx models.ExecutionContext) (string, error) {
	return defaultResolver.ResolveStrict(tpl, execCtx)
}

// ResolveValue resolves every string leaf of v, walking maps and slices.
func ResolveValue(v any, execCtx models.ExecutionContext) any {
	return defaultResolver.ResolveValue(v, execCtx)
}

// HasTokens reports whether s contains at least one template token.
func HasTokens(s string) bool {
	i := strings.Index(s, openDelim)

	return i >= 0 && strings.Contains(s[i+len(openDelim):], closeDelim)
}

func (r *Resolver) Resolve(tpl string, execCtx models.ExecutionContext) string {
	out, _ := r.resolve(tpl, execCtx)

	return out
}

func (r *Resolver) ResolveStrict(tpl string, execCtx models.ExecutionContext) (string, error) {
	out, missing := r.resolve(tpl, execCtx)
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(missing, ", "))
	}

	return out, nil
}

func (r *Resolver) ResolveValue(v any, execCtx models.ExecutionContext) any {
	switch val := v.(type) {
	case string:
		return r.Resolve(val, execCtx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveValue(item, execCtx)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveValue(item, execCtx)
		}

		return out
	default:
		return v
	}
}

func (r *Resolver) resolve(tpl string, execCtx models.ExecutionContext) (string, []string) {
	if !strings.Contains(tpl, openDelim) {
		return tpl, nil
	}

	var (
		buf     strings.Builder
		missing []string
		root    = execCtx.Map()
		rest    = tpl
	)

	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			buf.WriteString(rest)

			break
		}

		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			buf.WriteString(rest)

			break
		}

		buf.WriteString(rest[:start])

		expr := strings.TrimSpace(rest[start+len(openDelim) : start+len(openDelim)+end])
		text, ok := evaluate(expr, root)

		if !ok {
			missing = append(missing, expr)
		}

		buf.WriteString(text)

		rest = rest[start+len(openDelim)+end+len(closeDelim):]
	}

	out := buf.String()
	r.trace(tpl, out, execCtx, missing)

	return out, missing
}

func evaluate(expr string, root map[string]any) (string, bool) {
	switch {
	case strings.HasPrefix(expr, jsonPrefix):
		value, ok := Lookup(root, strings.TrimSpace(expr[len(jsonPrefix):]))
		if !ok {
			return "null", false
		}

		return JSON(value), true
	case strings.HasPrefix(expr, jqPrefix):
		results, err := JQ(strings.TrimSpace(expr[len(jqPrefix):]), root)
		if err != nil || len(results) == 0 || results[0] == nil {
			return "", false
		}

		return Stringify(results[0]), true
	default:
		value, ok := Lookup(root, expr)
		if !ok {
			return "", false
		}

		return Stringify(value), true
	}
}

func (r *Resolver) trace(tpl, out string, execCtx models.ExecutionContext, missing []string) {
	if r.debug != nil {
		r.debug(Trace{Template: tpl, Resolved: out, AvailableKeys: execCtx.Keys(), Unresolved: missing})

		return
	}

	ctx := context.Background()
	if r.logger == nil || !r.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	r.logger.DebugContext(ctx, "Resolved template",
		"template", tpl,
		"resolved", out,
		"available_keys", execCtx.Keys(),
		"unresolved", missing,
	)
}
