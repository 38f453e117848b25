package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err unless the run's logger already did.
func printError(w io.Writer, err error) {
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintln(w, "Error:", err)
	}
}

// reportedError marks a failure that the run's logger already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
