package commands

import "fmt"

// Exit codes
const (
	CodeFailed = 1 // at least one job failed
	CodeError  = 2 // at least one job was rejected before it ran
)

// ExitError carries a process exit code. Its message has already been
// printed by the command that returned it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
