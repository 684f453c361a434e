package main

import (
	"errors"
	"io"

	"github.com/google/shlex"
)

var errEmptyCommand = errors.New("empty -exec command")

// commandArgs splits an -exec argument using shell quoting rules.
func commandArgs(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errEmptyCommand
	}
	return args, nil
}

// relay copies in to session and session to out. It returns once the peer stops sending, or
// earlier if sending fails. The end of in does not end the relay.
func relay(session io.ReadWriter, in io.Reader, out io.Writer) error {
	sent := make(chan error, 1)
	received := make(chan error, 1)
	go func() {
		_, err := io.Copy(session, in)
		sent <- err
	}()
	go func() {
		_, err := io.Copy(out, session)
		received <- err
	}()
	select {
	case err := <-received:
		return err
	case err := <-sent:
		if err != nil {
			return err
		}
		return <-received
	}
}
