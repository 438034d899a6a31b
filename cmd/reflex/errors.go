package main

import (
	"errors"
	"fmt"
	"io"

	"reflex/internal/rt"
)

// errSilent marks errors whose details were already printed.
var errSilent = errors.New("silent")

// formatError prefixes registry errors with their code.
func formatError(err error) string {
	if code := rt.CodeOf(err); code != rt.UnknownCode {
		return dimColor.Sprintf("[%s]", code.ID()) + " " + err.Error()
	}
	return err.Error()
}

func printError(out io.Writer, err error) {
	if errors.Is(err, errSilent) {
		return
	}
	fmt.Fprintf(out, "%s %s\n", errColor.Sprint("error:"), formatError(err))
}
