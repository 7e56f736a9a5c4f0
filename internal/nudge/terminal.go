package nudge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spendshield/spendshield/internal/report"
)

// TerminalSurface presents the nudge as an interactive prompt. It
// serves CLI runs, where there is no page to inject a modal into.
type TerminalSurface struct {
	in  io.Reader
	out io.Writer

	interactive func() bool
}

// NewTerminalSurface creates a terminal surface. nil in/out default to
// stdin/stderr.
func NewTerminalSurface(in io.Reader, out io.Writer) *TerminalSurface {
	s := &TerminalSurface{in: in, out: out}
	if s.in == nil {
		s.in = os.Stdin
		s.interactive = func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		}
	} else {
		s.interactive = func() bool { return true }
	}
	if s.out == nil {
		s.out = os.Stderr
	}
	return s
}

// Show prints the nudge and reads the decision. A non-interactive
// stdin resolves as dismissed: no decision is ever fabricated.
func (s *TerminalSurface) Show(p Prompt, resolve func(Resolution)) {
	if !s.interactive() {
		resolve(Resolution{Dismissed: true})
		return
	}

	fmt.Fprintln(s.out, "")
	fmt.Fprintln(s.out, "╔══════════════════════════════════════════════════════╗")
	fmt.Fprintln(s.out, "║           Hold on: entering card details?            ║")
	fmt.Fprintln(s.out, "╚══════════════════════════════════════════════════════╝")
	fmt.Fprintf(s.out, "Site: %s\n", p.Hostname)

	if p.Analysis != nil {
		fmt.Fprintf(s.out, "Verdict: %s. %s\n",
			p.Analysis.Recommendation, truncate(p.Analysis.Reasoning, reasoningLimit))
		if p.Analysis.FairPrice != nil {
			fmt.Fprintf(s.out, "Fair price: %.2f\n", *p.Analysis.FairPrice)
		}
	}

	fmt.Fprintln(s.out, "")
	fmt.Fprintln(s.out, "Options:")
	fmt.Fprintln(s.out, "  [c] Cancel purchase")
	fmt.Fprintln(s.out, "  [k] Continue anyway")
	fmt.Fprintln(s.out, "  [x] Close without deciding")
	fmt.Fprintln(s.out, "")

	reader := bufio.NewReader(s.in)

	for {
		fmt.Fprint(s.out, "Your choice [c/k/x]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			resolve(Resolution{Dismissed: true})
			return
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "c", "cancel":
			resolve(Resolution{Outcome: report.OutcomeCancelled, OptOut: s.askOptOut(reader, p.Hostname)})
			return
		case "k", "continue":
			resolve(Resolution{Outcome: report.OutcomeContinued, OptOut: s.askOptOut(reader, p.Hostname)})
			return
		case "x", "close":
			resolve(Resolution{Dismissed: true})
			return
		default:
			fmt.Fprintln(s.out, "Invalid input. Enter 'c', 'k', or 'x'.")
		}
	}
}

func (s *TerminalSurface) askOptOut(reader *bufio.Reader, hostname string) bool {
	fmt.Fprintf(s.out, "Don't show again for %s? [y/N]: ", hostname)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "y", "yes":
		return true
	}
	return false
}

// Hide is a no-op: the prompt has nothing persistent to tear down.
func (s *TerminalSurface) Hide() {}
