package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/g1appdev/hubbits/internal/client/client"
)

func (a *App) printErr(err error) {
	a.log.Debug(context.Background(), "command failed", "error", err)
	fmt.Fprintln(a.out, "Error:", errorText(err))
}

// errorText renders err for the user, preferring the server's message.
func errorText(err error) string {
	var (
		verr *client.ValidationError
		serr *client.ServerError
		aerr *client.AuthError
	)
	switch {
	case errors.As(err, &aerr):
		return aerr.Error()
	case errors.As(err, &verr):
		return verr.Message()
	case errors.As(err, &serr):
		return "server error: " + serr.Message()
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	default:
		return err.Error()
	}
}
