package resource_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pitabwire/fluent/resource"
)

func TestParseMessageFile(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		data     string
		tag      language.Tag
		expected map[string]string
	}{
		{
			name: "toml tables",
			file: "messages.sw.toml",
			data: "[hello]\nother = \"Habari ${name}\"\n\n[items]\none = \"kitu kimoja\"\n",
			tag:  language.Swahili,
			expected: map[string]string{
				"hello": "Habari ${name}",
				"items": "kitu kimoja",
			},
		},
		{
			name:     "toml flat",
			file:     "messages.en.toml",
			data:     "hello = \"Hello ${name}\"\n",
			tag:      language.English,
			expected: map[string]string{"hello": "Hello ${name}"},
		},
		{
			name:     "yaml",
			file:     "messages.fr.yaml",
			data:     "hello:\n  other: Bonjour ${name}\n",
			tag:      language.French,
			expected: map[string]string{"hello": "Bonjour ${name}"},
		},
		{
			name:     "json",
			file:     "locales/messages.de.json",
			data:     `{"hello": {"other": "Hallo ${name}"}}`,
			tag:      language.German,
			expected: map[string]string{"hello": "Hallo ${name}"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, tag, err := resource.ParseMessageFile([]byte(tc.data), tc.file)
			require.NoError(t, err)
			require.Equal(t, tc.tag, tag)
			require.Equal(t, tc.expected, res.Map())
		})
	}
}

func TestParseMessageFileErrors(t *testing.T) {
	_, _, err := resource.ParseMessageFile([]byte("[broken"), "messages.en.toml")
	require.Error(t, err)

	_, _, err = resource.ParseMessageFile([]byte("a: b"), "messages.en.ini")
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	require.True(t, resource.IsMessageFile("messages.en.toml"))
	require.True(t, resource.IsMessageFile("app.yml"))
	require.False(t, resource.IsMessageFile("main.ftl"))
	require.False(t, resource.IsMessageFile("main"))

	res, err := resource.Decode([]byte("hello = Hello"), "main.ftl")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"hello": "Hello"}, res.Map())

	res, err = resource.Decode([]byte("hello = \"Hello\""), "main.toml")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"hello": "Hello"}, res.Map())
}
