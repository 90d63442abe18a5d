// Package sentinel provides a string-based error type for declaring sentinel
// errors as constants.
package sentinel
