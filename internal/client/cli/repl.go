package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App implements it;
// tests provide a stub.
type execIface interface {
	// Exec runs one command and reports whether the REPL should stop.
	Exec(ctx context.Context, cmd string, args []string) (quit bool)
}

// runREPL reads commands from reader until EOF, ctx cancellation or a
// command asking to quit. The first token of a line is the command, the
// rest its arguments. The prompt shows statusFn().
//
// Commands share reader with the forms they open, so a form reads the lines
// that follow its command.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "hubbits %s> ", statusFn())

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		if a.Exec(ctx, parts[0], parts[1:]) {
			return
		}
	}
}
