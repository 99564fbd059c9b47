// Package console provides the operator control surface: a plain TCP
// line console with a small registry of commands run against a Backend.
package console

import (
	"flag"
	"fmt"
	"io"
)

// Backend is the slice of the server the console operates on.
type Backend interface {
	Halt(reason string)
	Who() []SessionInfo
	MOTD() string
	Announce(message string)
}

// SessionInfo describes one entry of the session directory.
type SessionInfo struct {
	Name string
	Room string
}

type ioterm interface {
	io.Writer
}

func cmdConsole(backend Backend, cmd string, term ioterm) *console {
	c := &console{
		backend: backend,
		ioterm:  term,
		FlagSet: flag.NewFlagSet(cmd, flag.ContinueOnError),
	}
	c.SetOutput(c)
	return c
}

type console struct {
	ioterm
	*flag.FlagSet

	backend Backend
}

func (c *console) Print(args ...interface{})                 { fmt.Fprint(c, args...) }
func (c *console) Println(args ...interface{})               { fmt.Fprintln(c, args...) }
func (c *console) Printf(format string, args ...interface{}) { fmt.Fprintf(c, format, args...) }

func (c *console) Write(data []byte) (int, error) { return c.ioterm.Write(data) }

type handler interface {
	run(c *console, args []string) error
}

var handlers = map[string]handler{}

func register(name string, h handler) { handlers[name] = h }

type usager interface {
	usage() string
}

func usageError(format string, args ...interface{}) error { return uerror(fmt.Sprintf(format, args...)) }

type uerror string

func (e uerror) Error() string { return string(e) }

func runHandler(h handler, c *console, args []string) {
	if err := h.run(c, args); err != nil {
		u, uok := h.(usager)
		if err != flag.ErrHelp {
			c.Printf("error: %s\n", err.Error())
		}
		_, ok := err.(uerror)
		if ok || err == flag.ErrHelp {
			if uok {
				c.Println(u.usage())
				c.Printf("\nOPTIONS:\n")
			}
			c.PrintDefaults()
		}
	}
}

func runCommand(backend Backend, cmd string, term ioterm, args []string) {
	if handler, ok := handlers[cmd]; ok {
		runHandler(handler, cmdConsole(backend, cmd, term), args)
	} else {
		fmt.Fprintf(term, "invalid command: %s\n", cmd)
	}
}
