package reducer

import "fmt"

// Error is returned when Reduce encounters an event whose Kind is not one
// of the closed set the reducer knows how to fold.
type Error struct {
	EventTag string
}

func (e *Error) Error() string {
	return fmt.Sprintf("reducer: unknown event tag %q", e.EventTag)
}
