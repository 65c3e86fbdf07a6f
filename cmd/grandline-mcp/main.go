package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/grandline/internal/app"
	"github.com/peterkuimelis/grandline/internal/mcp"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	a, err := app.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	s := server.NewMCPServer("grandline", "1.0.0")
	mcp.NewTools(a.Table, a.Log.Named("mcp")).Register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
