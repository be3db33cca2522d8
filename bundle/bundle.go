// Package bundle resolves messages for one locale chain and substitutes
// `${name}` placeholders with runtime arguments.
package bundle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/pitabwire/fluent/resource"
)

// ErrMessageNotFound is returned by Format for unknown message ids.
var ErrMessageNotFound = errors.New("bundle: message not found")

var placeholder = regexp.MustCompile(`\$\{([^{}]*)\}`)

// Message is a resolved message.
type Message struct {
	ID    string
	Value string
}

// Option configures a Bundle.
type Option func(*Bundle)

// WithTransform applies fn to every message value before placeholders are
// substituted.
func WithTransform(fn func(string) string) Option {
	return func(b *Bundle) {
		b.transform = fn
	}
}

// Bundle holds the messages of one locale (optionally with fallbacks named
// after it in Locales). Messages added later replace earlier ones.
type Bundle struct {
	locales   []string
	tags      []language.Tag
	messages  map[string]Message
	transform func(string) string
}

// New creates an empty bundle. Locales that are not valid BCP 47 tags are
// kept in Locales but left out of Tags.
func New(locales []string, opts ...Option) *Bundle {
	b := &Bundle{
		locales:  append([]string(nil), locales...),
		messages: make(map[string]Message),
	}
	for _, l := range locales {
		if tag, err := language.Parse(l); err == nil {
			b.tags = append(b.tags, tag)
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bundle) Locales() []string {
	return append([]string(nil), b.locales...)
}

func (b *Bundle) Tags() []language.Tag {
	return append([]language.Tag(nil), b.tags...)
}

// AddResource adds every message of r.
func (b *Bundle) AddResource(r *resource.Resource) {
	for _, e := range r.Entries() {
		b.messages[e.ID] = Message{ID: e.ID, Value: e.Value}
	}
}

// AddResourceString parses src and adds its messages.
func (b *Bundle) AddResourceString(src string) error {
	r, err := resource.Parse(src)
	if err != nil {
		return err
	}
	b.AddResource(r)
	return nil
}

func (b *Bundle) GetMessage(id string) (Message, bool) {
	m, ok := b.messages[id]
	return m, ok
}

func (b *Bundle) HasMessage(id string) bool {
	_, ok := b.messages[id]
	return ok
}

// Len is the number of messages in the bundle.
func (b *Bundle) Len() int {
	return len(b.messages)
}

// FormatPattern substitutes every `${key}` in pattern whose key is present
// in args with the value's default formatting. Unknown placeholders are
// left untouched and substituted text is not scanned again. The bundle's
// transform, if any, applies to the literal text only.
func (b *Bundle) FormatPattern(pattern string, args map[string]any) string {
	if b.transform == nil && len(args) == 0 {
		return pattern
	}

	var sb strings.Builder
	last := 0
	for _, loc := range placeholder.FindAllStringSubmatchIndex(pattern, -1) {
		sb.WriteString(b.text(pattern[last:loc[0]]))
		if v, ok := args[pattern[loc[2]:loc[3]]]; ok {
			sb.WriteString(fmt.Sprint(v))
		} else {
			sb.WriteString(pattern[loc[0]:loc[1]])
		}
		last = loc[1]
	}
	sb.WriteString(b.text(pattern[last:]))
	return sb.String()
}

func (b *Bundle) text(s string) string {
	if b.transform == nil || s == "" {
		return s
	}
	return b.transform(s)
}

// Format looks up id and formats its value with args.
func (b *Bundle) Format(id string, args map[string]any) (string, error) {
	m, ok := b.messages[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return b.FormatPattern(m.Value, args), nil
}
