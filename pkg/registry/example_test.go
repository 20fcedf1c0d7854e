package registry_test

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/registry"
)

func ExampleRegistry_Executor() {
	r := registry.NewDefault(slog.Default())

	execute, err := r.Executor("switch")
	if err != nil {
		panic(err)
	}

	out, err := execute(context.Background(), protocol.Invocation{
		NodeID: "route",
		Config: map[string]any{
			"rules": []any{
				map[string]any{"name": "small", "condition": "{{total}} < 10", "output": 0},
				map[string]any{"name": "large", "condition": "{{total}} >= 10", "output": 1},
			},
			"fallbackOutput": 2,
		},
		Context: models.ExecutionContext{}.With("total", 42),
	})
	if err != nil {
		panic(err)
	}

	fmt.Println(out.Value(models.SwitchOutputKey))
	// Output: 1
}
