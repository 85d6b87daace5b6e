package routing

import "fmt"

// PreconditionError is the panic value raised when routing is asked to work
// on data that upstream code should never have produced: a report without a
// ward or city, or a category rule without its class or email.
type PreconditionError struct {
	Msg string
}

func (e PreconditionError) Error() string {
	return "routing precondition violated: " + e.Msg
}

func precondition(format string, args ...any) {
	panic(PreconditionError{Msg: fmt.Sprintf(format, args...)})
}
