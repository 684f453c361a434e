// Netcat over a secio session

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/p2pkit/secio/internal/log"
	"github.com/p2pkit/secio/pkg/cli"
	"github.com/p2pkit/secio/pkg/secio"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usageText = `
Opens an authenticated, encrypted connection to ADDRESS (or accepts one with -listen) and copies
stdin to the peer and the peer's output to stdout. With -exec, the given command's stdin and
stdout are connected to the peer instead.

When dialing with -known-peers, the first identity seen at ADDRESS is pinned and later connections
fail if a different key answers.`

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...] ADDRESS\n       %s [OPTION...] -listen ADDRESS\n", filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
	fmt.Fprintln(w, usageText)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func connect(listen string, address string) (net.Conn, error) {
	if listen == "" {
		return net.Dial("tcp", address)
	}
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	defer listener.Close()
	log.Info("Listening on %s", listener.Addr())
	return listener.Accept()
}

func main() {
	var (
		listen  string
		command string
		timeout time.Duration
	)
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	config.RegisterCommandLineFlags()
	flag.Usage = usage
	flag.StringVar(&listen, "listen", "", "Accept one connection on `address` instead of dialing")
	flag.StringVar(&command, "exec", "", "Connect the peer to `command` instead of stdin/stdout")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Handshake timeout")
	flag.Parse()
	config.ReadFromEnvironment()
	if err := config.LoadProfile(); err != nil {
		writeErr("Failed to load profile: %s", err)
		return
	}
	if err := config.ApplyLogLevel(); err != nil {
		writeErr("%s", err)
		return
	}

	var address string
	switch {
	case listen == "" && flag.NArg() == 1:
		address = flag.Arg(0)
	case listen != "" && flag.NArg() == 0:
	default:
		usage()
		return
	}

	var args []string
	if command != "" {
		if args, err = commandArgs(command); err != nil {
			writeErr("Invalid -exec command: %s", err)
			return
		}
	}

	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}
	// Inbound connections come from ephemeral ports, so only explicit -peer pins apply.
	sessionConfig, err := config.SessionConfig(address)
	if err != nil {
		writeErr("Error configuring session: %s", err)
		return
	}

	conn, err := connect(listen, address)
	if err != nil {
		writeErr("Failed to connect: %s", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	session, err := secio.Secure(ctx, conn, sessionConfig)
	cancel()
	if err != nil {
		writeErr("Handshake with %s failed: %s", conn.RemoteAddr(), err)
		if errors.Is(err, secio.ErrIdentityMismatch) && config.KnownPeersFilename != "" {
			writeErr("The key at %s is not the one pinned in %s.", address, config.KnownPeersFilename)
		}
		return
	}
	defer session.Close()
	writeErr("Connected to %s (%s)", session.RemotePeer().ID(), session.Algorithms())
	if listen == "" {
		config.RememberPeer(address, session)
	}

	if args != nil {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdin = session
		cmd.Stdout = session
		cmd.Stderr = os.Stderr
		// Don't wait on a peer that stays connected after the command exits.
		cmd.WaitDelay = time.Second
		if err := cmd.Run(); err != nil {
			writeErr("Command failed: %s", err)
			return
		}
	} else if err := relay(session, os.Stdin, os.Stdout); err != nil {
		writeErr("Connection closed: %s", err)
		return
	}
	status = 0
}
