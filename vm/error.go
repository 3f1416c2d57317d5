package vm

import "fmt"

// Error defines a runtime error raised during execution.
type Error struct {
	IP  int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%04x: %s", e.IP, e.Msg)
}
