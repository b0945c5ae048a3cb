package state

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type DirectiveKind int

const (
	DirectiveAdmit DirectiveKind = iota
	DirectiveDelay
)

// Directive is one meaningful line of a traffic file.
type Directive struct {
	Kind   DirectiveKind
	Switch int32
	SrcIP  int32
	DestIP int32
	Delay  time.Duration
	Line   int
}

func (d Directive) String() string {
	if d.Kind == DirectiveDelay {
		return fmt.Sprintf("sw%d delay %dms", d.Switch, d.Delay.Milliseconds())
	}
	return fmt.Sprintf("sw%d %d %d", d.Switch, d.SrcIP, d.DestIP)
}

// TrafficError describes a traffic file line that does not follow the grammar.
type TrafficError struct {
	Line int
	Text string
	Err  error
}

func (e *TrafficError) Error() string {
	return fmt.Sprintf("traffic line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *TrafficError) Unwrap() error {
	return e.Err
}

// ParseDirective parses one traffic line. Blank lines and comments return ok == false.
func ParseDirective(line string) (Directive, bool, error) {
	words := strings.Fields(line)
	if len(words) == 0 || strings.HasPrefix(words[0], "#") {
		return Directive{}, false, nil
	}
	if len(words) != 3 {
		return Directive{}, false, fmt.Errorf("expected 3 fields, got %d", len(words))
	}
	sw, err := ParseSwitchName(words[0])
	if err != nil {
		return Directive{}, false, err
	}
	if sw == NullPort {
		return Directive{}, false, fmt.Errorf("traffic cannot be addressed to null")
	}
	if words[1] == "delay" {
		ms, err := strconv.Atoi(words[2])
		if err != nil || ms < 0 {
			return Directive{}, false, fmt.Errorf("invalid delay %q", words[2])
		}
		return Directive{Kind: DirectiveDelay, Switch: sw, Delay: time.Duration(ms) * time.Millisecond}, true, nil
	}
	src, err := parseIP(words[1])
	if err != nil {
		return Directive{}, false, err
	}
	dst, err := parseIP(words[2])
	if err != nil {
		return Directive{}, false, err
	}
	return Directive{Kind: DirectiveAdmit, Switch: sw, SrcIP: src, DestIP: dst}, true, nil
}

// TrafficReader yields the directives of a traffic file addressed to one switch.
type TrafficReader struct {
	scanner *bufio.Scanner
	sw      int32
	line    int
}

// NewTrafficReader reads directives for sw. A sw of 0 yields every switch's directives.
func NewTrafficReader(r io.Reader, sw int32) *TrafficReader {
	return &TrafficReader{scanner: bufio.NewScanner(r), sw: sw}
}

// Next returns the next directive, io.EOF at the end, or a *TrafficError for a
// malformed line. Reading may continue after a *TrafficError.
func (t *TrafficReader) Next() (Directive, error) {
	for t.scanner.Scan() {
		t.line++
		text := t.scanner.Text()
		d, ok, err := ParseDirective(text)
		if err != nil {
			return Directive{}, &TrafficError{Line: t.line, Text: strings.TrimSpace(text), Err: err}
		}
		if !ok || (t.sw != 0 && d.Switch != t.sw) {
			continue
		}
		d.Line = t.line
		return d, nil
	}
	if err := t.scanner.Err(); err != nil {
		return Directive{}, err
	}
	return Directive{}, io.EOF
}
