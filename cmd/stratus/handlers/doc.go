// Package handlers implements the CLI commands.
//
// Every command except serve is a thin client of the stratus HTTP API.
// Output goes to Out, which tests replace.
package handlers
