// Package resource turns localization resources into id/value messages and
// loads them from blob storage.
//
// The text format is a reduced subset of Fluent: one `id = value` message per
// line, `#` comment lines and blank lines. Anything else is ignored.
package resource

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/pitabwire/fluent/iterable"
)

var (
	messageLine  = regexp.MustCompile(`^(\w+)\s*=\s*(.+)$`)
	quoteRemover = strings.NewReplacer(`"`, "", "“", "", "”", "")
)

const maxLineSize = 1 << 20

// Entry is a single message definition.
type Entry struct {
	ID    string
	Value string
	// Line is the 1-based line the entry was read from, 0 when unknown.
	Line int
}

func parseLine(raw string, line int) (Entry, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Entry{}, false
	}

	m := messageLine.FindStringSubmatch(trimmed)
	if m == nil {
		return Entry{}, false
	}

	return Entry{
		ID:    m[1],
		Value: strings.TrimSpace(quoteRemover.Replace(m[2])),
		Line:  line,
	}, true
}

// Entries streams the entries of r lazily. Lines are read only as entries
// are requested; read errors surface from the step that hit them.
func Entries(r io.Reader) *iterable.Cached[Entry] {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	line := 0
	return iterable.MustNew[Entry](iterable.StepperFunc[Entry](func() (iterable.Result[Entry], error) {
		for sc.Scan() {
			line++
			if e, ok := parseLine(sc.Text(), line); ok {
				return iterable.Value(e), nil
			}
		}
		if err := sc.Err(); err != nil {
			return iterable.Result[Entry]{}, err
		}
		return iterable.Exhausted[Entry](), nil
	}))
}

// ParseReader reads every entry of r into a Resource.
func ParseReader(r io.Reader) (*Resource, error) {
	res := NewResource()
	for e, err := range Entries(r).All() {
		if err != nil {
			return nil, err
		}
		res.Add(e)
	}
	return res, nil
}

// Parse parses a resource held in memory.
func Parse(src string) (*Resource, error) {
	return ParseReader(strings.NewReader(src))
}
