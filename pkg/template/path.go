package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Lookup walks a dot-separated path through maps and slices. Numeric
// segments index into slices. An empty path returns root itself.
func Lookup(root any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return root, root != nil
	}

	current := root

	for _, segment := range strings.Split(path, ".") {
		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func step(current any, segment string) (any, bool) {
	switch node := current.(type) {
	case map[string]any:
		v, ok := node[segment]

		return v, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}

		return node[idx], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(current)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		v := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}

		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}

		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}

// Stringify renders a value the way {{path}} substitutes it.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return JSON(v)
	default:
		return fmt.Sprint(v)
	}
}

// JSON renders a value the way {{json path}} substitutes it.
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}

	return string(data)
}

// AsList returns v as a []any when it is a slice or array.
func AsList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// AsObject returns v as a map[string]any when it is a string-keyed map.
func AsObject(v any) (map[string]any, bool) {
	if obj, ok := v.(map[string]any); ok {
		return obj, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	out := make(map[string]any, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}

	return out, true
}
