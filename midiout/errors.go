package midiout

import "errors"

var (
	// ErrClosed is returned when sending on a closed Output.
	ErrClosed = errors.New("midi output closed")
	// ErrNoPort is returned when no output matches the requested name.
	ErrNoPort = errors.New("no matching midi output")
	// ErrUnknownProgram is returned by ProgramByName.
	ErrUnknownProgram = errors.New("unknown program")
)
