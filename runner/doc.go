// Package runner implements the interactive read loop.
//
// The Runner reads one line at a time with readline-style editing and
// history (liner), hands non-empty input to a Handler and prints the reply.
// "exit", "quit", Ctrl+C at the prompt and EOF end the loop. Replies can be
// rendered as Markdown for terminals that support it.
package runner
