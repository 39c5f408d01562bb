// Package app contains the application logic behind the command line: it
// loads a catalogue, runs the transformation pipeline and inspects or calls
// into the published namespace. It is decoupled from any specific
// entrypoint.
package app
