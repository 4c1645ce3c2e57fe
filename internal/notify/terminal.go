package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// TerminalNotifier prints alert messages as plain text. Every print counts
// as a successful delivery.
type TerminalNotifier struct {
	mu           sync.Mutex
	out          io.Writer
	markup       Markup
	bellEnabled  bool
	colorEnabled bool
	now          func() time.Time
}

// NewTerminalNotifier creates a TerminalNotifier writing to out, or to the
// color package's stdout when out is nil. Messages are expected in markup m,
// which is stripped before printing.
func NewTerminalNotifier(out io.Writer, m Markup) *TerminalNotifier {
	if out == nil {
		out = color.Output
	}
	return &TerminalNotifier{
		out:          out,
		markup:       m,
		colorEnabled: !color.NoColor,
		now:          time.Now,
	}
}

// SetBellEnabled enables or disables the terminal bell.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// SetColorEnabled enables or disables colored output.
func (tn *TerminalNotifier) SetColorEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.colorEnabled = enabled
}

func (tn *TerminalNotifier) Name() string { return "terminal" }

// Send prints message with a timestamp header.
func (tn *TerminalNotifier) Send(ctx context.Context, message string) bool {
	if ctx.Err() != nil {
		return false
	}

	tn.mu.Lock()
	defer tn.mu.Unlock()

	header := fmt.Sprintf("[%s] ALERT", tn.now().Format("15:04:05"))
	body := tn.markup.Plain(message)

	var b strings.Builder
	if tn.bellEnabled {
		b.WriteString("\a")
	}
	if tn.colorEnabled {
		hc := color.New(color.FgHiRed, color.Bold)
		hc.EnableColor()
		b.WriteString(hc.Sprint(header))
	} else {
		b.WriteString(header)
	}
	b.WriteString("\n")
	for _, line := range strings.Split(body, "\n") {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	_, err := io.WriteString(tn.out, b.String())
	return err == nil
}
