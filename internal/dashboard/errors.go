package dashboard

import "fmt"

// Mutation operations.
const (
	OpAdd    = "add contract"
	OpDelete = "delete contract"
)

// MutationError is a failed contract write while the backend was reachable.
type MutationError struct {
	Op         string
	ContractID int64
	Err        error
}

func (e *MutationError) Error() string {
	if e.ContractID != 0 {
		return fmt.Sprintf("%s %d: %v", e.Op, e.ContractID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// MonitorError is a transport or HTTP failure of a monitor control call.
type MonitorError struct {
	Action string
	Err    error
}

func (e *MonitorError) Error() string {
	return fmt.Sprintf("%s monitor: %v", e.Action, e.Err)
}

func (e *MonitorError) Unwrap() error { return e.Err }
