package console

import "strings"

func init() {
	register("halt", halt{})
	register("who", who{})
	register("motd", motd{})
	register("announce", announce{})
}

type halt struct{}

func (halt) usage() string { return "halt [<reason>]" }

func (halt) run(c *console, args []string) error {
	if err := c.Parse(args); err != nil {
		return err
	}
	reason := strings.Join(c.Args(), " ")
	if reason == "" {
		reason = "operator request"
	}
	c.Printf("halting: %s\n", reason)
	c.backend.Halt(reason)
	return nil
}

type who struct{}

func (who) usage() string { return "who" }

func (who) run(c *console, args []string) error {
	if err := c.Parse(args); err != nil {
		return err
	}
	infos := c.backend.Who()
	c.Printf("%d session(s)\n", len(infos))
	for _, info := range infos {
		c.Printf("  %s\t%s\n", info.Name, info.Room)
	}
	return nil
}

type motd struct{}

func (motd) usage() string { return "motd" }

func (motd) run(c *console, args []string) error {
	if err := c.Parse(args); err != nil {
		return err
	}
	c.Println(c.backend.MOTD())
	return nil
}

type announce struct{}

func (announce) usage() string { return "announce <message>" }

func (announce) run(c *console, args []string) error {
	if err := c.Parse(args); err != nil {
		return err
	}
	message := strings.Join(c.Args(), " ")
	if message == "" {
		return usageError("a message is required")
	}
	c.backend.Announce(message)
	c.Printf("announced to all sessions\n")
	return nil
}
