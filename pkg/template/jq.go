package template

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

var jqCache sync.Map // filter -> *gojq.Code

// JQ runs a jq filter against input and returns every emitted value.
// Input is normalised to plain JSON values first.
func JQ(filter string, input any) ([]any, error) {
	code, err := compileJQ(filter)
	if err != nil {
		return nil, err
	}

	normalized, err := normalize(input)
	if err != nil {
		return nil, err
	}

	var results []any

	iter := code.Run(normalized)

	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter %q failed: %w", filter, err)
		}

		results = append(results, v)
	}

	return results, nil
}

// CompileJQ reports whether filter is a valid jq program. Compiled programs
// are cached for later runs.
func CompileJQ(filter string) error {
	_, err := compileJQ(filter)

	return err
}

func compileJQ(filter string) (*gojq.Code, error) {
	if cached, ok := jqCache.Load(filter); ok {
		return cached.(*gojq.Code), nil
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid jq filter %q: %w", filter, err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	jqCache.Store(filter, code)

	return code, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON serializable: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
