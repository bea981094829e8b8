// Package main provides the bloodnet command line client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/logger"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// errUsage marks a command line mistake; usage has already been printed.
var errUsage = errors.New("usage error")

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bloodnet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var opts globalOptions
	fs.StringVar(&opts.configPath, "config", "", "Path to a config.toml file")
	fs.StringVar(&opts.configPath, "c", "", "Path to a config.toml file (shorthand)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.verbose, "v", false, "Enable debug logging (shorthand)")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		printVersion(stdout)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: a command is required")
		fmt.Fprintln(stderr, "")
		printUsage(stderr)
		return 2
	}

	name, cmdArgs := rest[0], rest[1:]
	switch name {
	case "version":
		printVersion(stdout)
		return 0
	case "help":
		printUsage(stdout)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", name)
		printUsage(stderr)
		return 2
	}

	a, err := newApp(ctx, opts, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd(logger.WithCommand(ctx, name), a, cmdArgs); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		a.printError(err)
		return 1
	}
	return 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "bloodnet %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `bloodnet - IIUC Blood Network client

USAGE:
    bloodnet [options] <command> [command options]

DESCRIPTION:
    Find blood requests that match your blood group, accept them, and post
    emergency requests of your own. The login is kept between runs in the
    configured session storage (file, memory or redis).

OPTIONS:
    -config, -c <path>    Path to a config.toml file
    -json                 Print results as JSON
    -verbose, -v          Enable debug logging
    -version              Show version information

ACCOUNT COMMANDS:
    login -phone <p> [-password <pw>]
                          Log in (password is read from stdin when omitted)
    logout                Forget the stored login
    whoami                Show the current session
    register -name <n> -phone <p> -password <pw> [-email <e>]
             [-donor -blood-group <g> -gender <g>] [-otp <code>]
                          Create an account; prompts for the texted code,
                          type "edit" at the prompt to change your details

DONOR COMMANDS:
    feed [-refresh <interval>]
                          Show requests matching your blood group
    accept <request-id>   Accept a request
    profile -blood-group <g> -gender <g>
                          Complete your donor profile

REQUEST COMMANDS:
    request create -patient <n> -phone <p> -blood-group <g> -location <l>
                   -time <HH:MM> -reason <r> [-date <YYYY-MM-DD>]
                          Post an emergency request
    request status        Show your active request and its progress
    request cancel [-yes] Cancel your active request

OTHER:
    open <path>           Show which screen a route leads to
    version               Show version information

CONFIGURATION:
    Settings are read from config.toml (., $XDG_CONFIG_HOME/bloodnet,
    /etc/bloodnet) and BLOODNET_ environment variables, for example
    BLOODNET_API_BASE_URL or BLOODNET_SESSION_BACKEND=redis.

EXAMPLES:
    bloodnet login -phone 01712345678
    bloodnet -json feed
    bloodnet request create -patient "Rahim Uddin" -phone 01812345678 \
        -blood-group O+ -location "Chattogram Medical College" \
        -time 10:30 -reason Surgery
`)
}
