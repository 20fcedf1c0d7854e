package models

import "strconv"

// Port names used by the router.
const (
	PortMain    = "main"
	PortSuccess = "success"
	PortError   = "error"
	PortTrue    = "true"
	PortFalse   = "false"
	PortEach    = "each"
	PortDone    = "done"

	switchPortPrefix = "output_"
)

// SwitchPort returns the port name of the switch output with the given index.
func SwitchPort(index int) string {
	return switchPortPrefix + strconv.Itoa(index)
}

// ParsePortID parses a port ID in format "{node_id}:{port_name}" into components.
// Node IDs may not contain ':'; port names may.
func ParsePortID(portID string) (string, string, bool) {
	for i := range len(portID) {
		if portID[i] == ':' {
			return portID[:i], portID[i+1:], true
		}
	}

	return "", "", false
}

// MakePortID creates a port ID from node ID and port name.
func MakePortID(nodeID, portName string) string {
	return nodeID + ":" + portName
}
