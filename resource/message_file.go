package resource

import (
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var unmarshalFuncs = map[string]i18n.UnmarshalFunc{
	"toml": toml.Unmarshal,
	"yaml": yaml.Unmarshal,
	"yml":  yaml.Unmarshal,
}

// IsMessageFile reports whether name is a structured message file
// (messages.<lang>.toml|yaml|yml|json) rather than a line resource.
func IsMessageFile(name string) bool {
	switch strings.TrimPrefix(path.Ext(name), ".") {
	case "toml", "yaml", "yml", "json":
		return true
	default:
		return false
	}
}

// ParseMessageFile reads a go-i18n message file. Each message contributes
// its "other" form, or "one" when "other" is empty. The language tag is
// taken from the file name, e.g. messages.sw.toml, and is language.Und when
// the name carries none.
func ParseMessageFile(data []byte, name string) (*Resource, language.Tag, error) {
	mf, err := i18n.ParseMessageFileBytes(data, name, unmarshalFuncs)
	if err != nil {
		return nil, language.Und, fmt.Errorf("resource: parse message file %s: %w", name, err)
	}

	res := NewResource()
	for _, m := range mf.Messages {
		value := m.Other
		if value == "" {
			value = m.One
		}
		res.Add(Entry{ID: m.ID, Value: strings.TrimSpace(value)})
	}
	return res, mf.Tag, nil
}

// Decode parses data according to the resource name: message files go
// through ParseMessageFile, everything else through the line parser.
func Decode(data []byte, name string) (*Resource, error) {
	if IsMessageFile(name) {
		res, _, err := ParseMessageFile(data, name)
		return res, err
	}
	return Parse(string(data))
}
