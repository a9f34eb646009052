package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"omnichat/internal/events"
)

// StdoutRenderer streams events to a plain text writer.
type StdoutRenderer struct {
	w                io.Writer
	mu               sync.Mutex
	verbose          bool
	quiet            bool
	showHeader       bool
	printedPrefix    bool
	sawDelta         bool
	endedWithNewline bool
}

// NewStdoutRenderer creates a renderer for plain text streaming.
func NewStdoutRenderer(w io.Writer, verbose, quiet, showHeader bool) *StdoutRenderer {
	return &StdoutRenderer{w: w, verbose: verbose, quiet: quiet, showHeader: showHeader}
}

func (r *StdoutRenderer) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case events.SessionStarted:
		if payload, ok := event.Payload.(events.SessionStartedPayload); ok {
			if r.quiet || !r.showHeader {
				return
			}
			fmt.Fprintf(r.w, "omnichat v%s | provider: %s | model: %s | session: %s\n", payload.Version, payload.Provider, payload.Model, payload.SessionID)
		}
	case events.TurnStarted:
		// Each turn gets a fresh answer prefix.
		r.printedPrefix = false
		r.sawDelta = false
		r.endedWithNewline = false
	case events.ToolCallStarted:
		if payload, ok := event.Payload.(events.ToolCallStartedPayload); ok {
			if r.quiet || !r.verbose {
				return
			}
			fmt.Fprintf(r.w, "tool: %s start\n", payload.ToolName)
			fmt.Fprintf(r.w, "input: %v\n", payload.Input)
		}
	case events.ToolCallFinished, events.ToolCallFailed:
		if payload, ok := event.Payload.(events.ToolCallFinishedPayload); ok {
			if r.quiet {
				return
			}
			status := payload.Status
			if status == "success" {
				status = "ok"
			} else if status == "error" {
				status = "err"
			}
			fmt.Fprintf(r.w, "tool: %s %s (%dms, %d bytes)\n", payload.ToolName, status, payload.DurationMs, payload.ByteCount)
			if r.verbose && payload.Preview != "" {
				fmt.Fprintf(r.w, "  %s\n", payload.Preview)
			}
		}
	case events.ModelDelta:
		if payload, ok := event.Payload.(events.ModelDeltaPayload); ok {
			if !r.printedPrefix {
				fmt.Fprint(r.w, "assistant: ")
				r.printedPrefix = true
			}
			if payload.Delta != "" {
				fmt.Fprint(r.w, payload.Delta)
				r.sawDelta = true
				r.endedWithNewline = strings.HasSuffix(payload.Delta, "\n")
			}
		}
	case events.TurnFinished:
		if payload, ok := event.Payload.(events.TurnFinishedPayload); ok {
			if r.sawDelta {
				if !r.endedWithNewline {
					fmt.Fprintln(r.w)
				}
				return
			}
			if !r.printedPrefix {
				fmt.Fprint(r.w, "assistant: ")
				r.printedPrefix = true
			}
			fmt.Fprintln(r.w, payload.Answer)
		}
	case events.SessionError:
		if payload, ok := event.Payload.(events.SessionErrorPayload); ok {
			fmt.Fprintf(r.w, "\nError: %s\n", payload.Message)
		}
	}
}

func (r *StdoutRenderer) Close() error {
	return nil
}
