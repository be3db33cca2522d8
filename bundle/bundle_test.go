package bundle_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"

	"github.com/pitabwire/fluent/bundle"
	"github.com/pitabwire/fluent/resource"
)

type BundleSuite struct {
	suite.Suite
}

func TestBundleSuite(t *testing.T) {
	suite.Run(t, new(BundleSuite))
}

func (s *BundleSuite) TestLocales() {
	b := bundle.New([]string{"en-US", "not a tag", "sw"})
	s.Equal([]string{"en-US", "not a tag", "sw"}, b.Locales())
	s.Equal([]language.Tag{language.AmericanEnglish, language.Swahili}, b.Tags())
}

func (s *BundleSuite) TestAddResourceAndLookup() {
	b := bundle.New([]string{"en"})
	s.Require().NoError(b.AddResourceString("hello = Hello\nbye = Bye"))

	s.True(b.HasMessage("hello"))
	s.False(b.HasMessage("missing"))
	s.Equal(2, b.Len())

	m, ok := b.GetMessage("bye")
	s.True(ok)
	s.Equal(bundle.Message{ID: "bye", Value: "Bye"}, m)

	_, ok = b.GetMessage("missing")
	s.False(ok)

	b.AddResource(resource.FromMap(map[string]string{"hello": "Hi"}))
	m, _ = b.GetMessage("hello")
	s.Equal("Hi", m.Value, "later resources replace messages")
}

func (s *BundleSuite) TestFormatPattern() {
	b := bundle.New([]string{"en"})

	testCases := []struct {
		name     string
		pattern  string
		args     map[string]any
		expected string
	}{
		{name: "no args", pattern: "Hello ${name}", expected: "Hello ${name}"},
		{name: "string arg", pattern: "Hello ${name}!", args: map[string]any{"name": "Ann"}, expected: "Hello Ann!"},
		{
			name:     "repeated placeholder",
			pattern:  "${n} and ${n}",
			args:     map[string]any{"n": 2},
			expected: "2 and 2",
		},
		{
			name:     "numbers from json",
			pattern:  "You have ${count} messages",
			args:     map[string]any{"count": float64(3)},
			expected: "You have 3 messages",
		},
		{
			name:     "unknown placeholder stays",
			pattern:  "${a} ${b}",
			args:     map[string]any{"a": "x"},
			expected: "x ${b}",
		},
		{
			name:     "values are not rescanned",
			pattern:  "${a}",
			args:     map[string]any{"a": "${b}", "b": "no"},
			expected: "${b}",
		},
		{
			name:     "other placeholder syntaxes untouched",
			pattern:  "{name} {$name} $name",
			args:     map[string]any{"name": "x"},
			expected: "{name} {$name} $name",
		},
		{name: "bool", pattern: "${ok}", args: map[string]any{"ok": true}, expected: "true"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, b.FormatPattern(tc.pattern, tc.args))
		})
	}
}

func (s *BundleSuite) TestFormat() {
	b := bundle.New([]string{"sw"}, bundle.WithTransform(strings.ToUpper))
	s.Require().NoError(b.AddResourceString("hello = Habari ${name}"))

	out, err := b.Format("hello", map[string]any{"name": "Juma"})
	s.Require().NoError(err)
	s.Equal("HABARI Juma", out)

	_, err = b.Format("missing", nil)
	s.Require().ErrorIs(err, bundle.ErrMessageNotFound)
}
