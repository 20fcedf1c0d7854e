package conditional

// NewFilterNode creates a filter: a conditional whose false branch has no
// successors, so items that fail the conditions stop the run.
func NewFilterNode(id string, config map[string]any) (*ConditionalNode, error) {
	return newNode(id, config, "filter")
}
