package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ticketdesk/admin-console/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.Options{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ticketdesk:", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}
