package config

import (
	"fmt"
	"io"
	"os"
)

var (
	exitOutput io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	ExitCodef(1, format, args...)
}

// ExitCodef writes a formatted message to stderr and exits with the given code.
func ExitCodef(code int, format string, args ...any) {
	fmt.Fprintf(exitOutput, format+"\n", args...)
	exitFunc(code)
}
