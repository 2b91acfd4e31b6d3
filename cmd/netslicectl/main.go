package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}
	cmd := args[0]
	rest := args[1:]

	var name string
	if cmd != "status" {
		if len(rest) < 1 {
			printUsage()
			return 1
		}
		name, rest = rest[0], rest[1:]
	}

	fs := flag.NewFlagSet("netslicectl", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8090", "controller base URL")
	fs.Parse(rest)

	client := NewClient(*addr)

	var err error
	switch cmd {
	case "activate":
		var resp actionResponse
		resp, err = client.Activate(name)
		if err == nil {
			fmt.Printf("%s: %s\n", resp.Status, resp.Message)
		}
	case "deactivate":
		var resp actionResponse
		resp, err = client.Deactivate(name)
		if err == nil {
			fmt.Printf("%s: %s\n", resp.Status, resp.Message)
		}
	case "status":
		var status statusResponse
		status, err = client.Status()
		if err == nil {
			printStatus(status)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printStatus(s statusResponse) {
	fmt.Println("slices:")
	for _, sl := range s.Slices {
		fmt.Printf("  %-16s reserved=%d%% priority=%d paths=%v\n", sl.Name, sl.ReservedBW, sl.Priority, sl.Paths)
	}
	fmt.Println("links:")
	for _, l := range s.Links {
		fmt.Printf("  %d->%d used=%d/%d\n", l.From, l.To, l.UsedBW, l.Capacity)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: netslicectl <command> <slice-name> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  activate <name>     Activate a declared slice")
	fmt.Fprintln(os.Stderr, "  deactivate <name>   Deactivate an active slice")
	fmt.Fprintln(os.Stderr, "  status              Print the current status snapshot")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -addr string   controller base URL (default http://localhost:8090)")
}
