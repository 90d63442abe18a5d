package sentinel

var _ error = Error("")

// Error is a sentinel error that can be declared as a const, which makes it
// immutable by construction. Comparisons with errors.Is work on the string
// value, so wrapping with fmt.Errorf and %w behaves as expected.
type Error string

func (e Error) Error() string {
	return string(e)
}
