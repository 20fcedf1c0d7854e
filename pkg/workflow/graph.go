package workflow

import (
	"fmt"
	"slices"

	"github.com/dukex/nodeflow/pkg/models"
)

const loopNodeType = "loop"

type edge struct {
	// index is the declaration position of the connection.
	index      int
	source     string
	sourcePort string
	target     string
}

// graph is the routing view of a workflow: nodes in topological order, edges
// grouped by source port and the body of each loop node.
type graph struct {
	nodes    map[string]*models.WorkflowNode
	order    []string
	position map[string]int
	outgoing map[string]map[string][]edge // source -> port -> edges
	incoming map[string][]edge
	// owner is the innermost loop whose each-port body contains the node.
	owner map[string]string
}

func newGraph(wf *models.Workflow) (*graph, error) {
	g := &graph{
		nodes:    make(map[string]*models.WorkflowNode, len(wf.Nodes)),
		position: make(map[string]int, len(wf.Nodes)),
		outgoing: make(map[string]map[string][]edge),
		incoming: make(map[string][]edge),
		owner:    make(map[string]string),
	}

	declared := make([]string, 0, len(wf.Nodes))

	for _, n := range wf.Nodes {
		if n == nil {
			continue
		}

		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidWorkflow, n.ID)
		}

		g.nodes[n.ID] = n
		declared = append(declared, n.ID)
	}

	for i, c := range wf.Connections {
		if c == nil {
			continue
		}

		source, sourcePort, ok := models.ParsePortID(c.SourcePort)
		if !ok {
			return nil, fmt.Errorf("%w: connection %q has malformed source port %q", ErrInvalidWorkflow, c.ID, c.SourcePort)
		}

		target, _, ok := models.ParsePortID(c.TargetPort)
		if !ok {
			return nil, fmt.Errorf("%w: connection %q has malformed target port %q", ErrInvalidWorkflow, c.ID, c.TargetPort)
		}

		if g.nodes[source] == nil || g.nodes[target] == nil {
			return nil, fmt.Errorf("%w: connection %q references an unknown node", ErrInvalidWorkflow, c.ID)
		}

		e := edge{index: i, source: source, sourcePort: sourcePort, target: target}

		if g.outgoing[source] == nil {
			g.outgoing[source] = make(map[string][]edge)
		}

		g.outgoing[source][sourcePort] = append(g.outgoing[source][sourcePort], e)
		g.incoming[target] = append(g.incoming[target], e)
	}

	order, err := g.topologicalOrder(declared)
	if err != nil {
		return nil, err
	}

	g.order = order
	for i, id := range order {
		g.position[id] = i
	}

	g.assignLoopOwners()

	return g, nil
}

// topologicalOrder is Kahn's algorithm; ties keep declaration order.
func (g *graph) topologicalOrder(declared []string) ([]string, error) {
	inDegree := make(map[string]int, len(declared))
	for _, id := range declared {
		inDegree[id] = len(g.incoming[id])
	}

	var queue []string

	for _, id := range declared {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	declaredIndex := make(map[string]int, len(declared))
	for i, id := range declared {
		declaredIndex[id] = i
	}

	order := make([]string, 0, len(declared))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var ready []string

		for _, edges := range g.outgoing[id] {
			for _, e := range edges {
				inDegree[e.target]--
				if inDegree[e.target] == 0 {
					ready = append(ready, e.target)
				}
			}
		}

		slices.SortFunc(ready, func(a, b string) int {
			return declaredIndex[a] - declaredIndex[b]
		})

		queue = append(queue, ready...)
	}

	if len(order) != len(declared) {
		return nil, fmt.Errorf("%w: the workflow graph contains a cycle", ErrInvalidWorkflow)
	}

	return order, nil
}

// assignLoopOwners walks loops in topological order so an inner loop, which
// comes later, overwrites the owner set by its enclosing loop.
func (g *graph) assignLoopOwners() {
	for _, id := range g.order {
		if g.nodes[id].Type != loopNodeType {
			continue
		}

		for member := range g.reachable(id, models.PortEach) {
			g.owner[member] = id
		}
	}
}

// reachable returns every node reachable from the given port of source.
func (g *graph) reachable(source, port string) map[string]struct{} {
	seen := make(map[string]struct{})

	var stack []string
	for _, e := range g.outgoing[source][port] {
		stack = append(stack, e.target)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[id]; ok || id == source {
			continue
		}

		seen[id] = struct{}{}

		for _, edges := range g.outgoing[id] {
			for _, e := range edges {
				stack = append(stack, e.target)
			}
		}
	}

	return seen
}

// scope returns, in topological order, the nodes directly owned by loop (or
// by no loop when loop is empty).
func (g *graph) scope(loop string) []string {
	var out []string

	for _, id := range g.order {
		if g.owner[id] == loop {
			out = append(out, id)
		}
	}

	return out
}

func (g *graph) hasPort(nodeID, port string) bool {
	return len(g.outgoing[nodeID][port]) > 0
}
