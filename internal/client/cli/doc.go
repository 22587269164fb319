// Package cli is the interactive Hubbits client.
//
// App reads commands from a line-based REPL and routes each through the
// session guard: public commands always run, member commands need a
// signed-in user and admin screens need ROLE_ADMIN. Entity commands open a
// screen backed by a synchronized list, so "pets add" shows the draft at
// once and a failed create stays listed until it is retried or discarded.
package cli
