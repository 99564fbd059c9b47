package console

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
)

// A Controller accepts operator connections and runs commands against the
// backend. It expects a trusted network; there is no authentication.
type Controller struct {
	listener net.Listener
	backend  Backend
}

func NewController(addr string, backend Backend) (*Controller, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %s", addr, err)
	}
	return &Controller{listener: listener, backend: backend}, nil
}

func (ctrl *Controller) Close() error { return ctrl.listener.Close() }

func (ctrl *Controller) Serve() {
	for {
		conn, err := ctrl.listener.Accept()
		if err != nil {
			return
		}
		go ctrl.interact(conn)
	}
}

func (ctrl *Controller) interact(conn net.Conn) {
	defer conn.Close()
	Interact(ctrl.backend, conn, conn)
}

// Interact runs a command loop over the given streams until EOF or quit.
// The launcher also points this at the process's own stdin.
func Interact(backend Backend, r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprintf(w, "> ")
		if !scanner.Scan() {
			return
		}
		cmd := parse(scanner.Text())
		switch cmd[0] {
		case "":
			continue
		case "quit":
			return
		default:
			runCommand(backend, cmd[0], w, cmd[1:])
		}
	}
}

func parse(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), " ")
	parts[0] = strings.ToLower(parts[0])
	return parts
}
