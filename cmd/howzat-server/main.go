package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"euphoria.io/scope"

	"github.com/ec429/howzat/backend"
	"github.com/ec429/howzat/backend/console"
)

var configPath = flag.String("config", "", "yaml config file (overrides flags)")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	if *configPath != "" {
		if err := backend.Config.LoadFromFile(*configPath); err != nil {
			return err
		}
	}

	ctx := scope.New()
	server := backend.NewServer(ctx, backend.Config.MOTD)

	listener, err := net.Listen("tcp", backend.Config.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %s", backend.Config.Listen, err)
	}
	go server.Accept(listener)

	if backend.Config.HTTP.Listen != "" {
		go func() {
			if err := http.ListenAndServe(backend.Config.HTTP.Listen, server); err != nil {
				fmt.Fprintf(os.Stderr, "http error: %s\n", err)
			}
		}()
	}

	if backend.Config.Console.Listen != "" {
		ctrl, err := console.NewController(backend.Config.Console.Listen, server)
		if err != nil {
			return fmt.Errorf("controller error: %s", err)
		}
		go ctrl.Serve()
	}
	go console.Interact(server, os.Stdin, os.Stdout)

	fmt.Printf("serving on %s\n", backend.Config.Listen)
	if err := server.Serve(); err != nil && err != backend.ErrHalted {
		return err
	}
	return nil
}
