package localization

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/grpc/metadata"
)

type contextKey string

func (c contextKey) String() string {
	return "fluent/localization/" + string(c)
}

const ctxKeyLanguage = contextKey("languageKey")

// ToContext adds language preferences to the supplied context.
func ToContext(ctx context.Context, lang []string) context.Context {
	return context.WithValue(ctx, ctxKeyLanguage, lang)
}

// FromContext extracts language preferences from the supplied context if any exist.
func FromContext(ctx context.Context) []string {
	languages, ok := ctx.Value(ctxKeyLanguage).([]string)
	if !ok {
		return nil
	}

	return languages
}

func ToMap(m map[string]string, lang []string) map[string]string {
	m["lang"] = strings.Join(lang, ",")
	return m
}

func FromMap(m map[string]string) []string {
	lang, ok := m["lang"]
	if !ok || lang == "" {
		return nil
	}
	return strings.Split(lang, ",")
}

// ExtractLanguageFromHTTPRequest returns the explicit ?lang= choice, if any,
// followed by the Accept-Language preferences.
func ExtractLanguageFromHTTPRequest(req *http.Request) []string {
	var languages []string
	if lang := req.URL.Query().Get("lang"); lang != "" {
		languages = append(languages, lang)
	}

	return append(languages, ExtractLanguageFromHTTPHeader(req.Header)...)
}

// ExtractLanguageFromHTTPHeader returns Accept-Language entries ordered by
// their quality value.
func ExtractLanguageFromHTTPHeader(header http.Header) []string {
	return parseAcceptLanguage(header.Get("Accept-Language"))
}

// ExtractLanguageFromGrpcRequest reads the accept-language metadata of an
// incoming call.
func ExtractLanguageFromGrpcRequest(ctx context.Context) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	header := md.Get("accept-language")
	if len(header) == 0 {
		return nil
	}
	return parseAcceptLanguage(header[0])
}

func parseAcceptLanguage(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(strings.SplitN(part, ";", 2)[0]); part != "" {
				out = append(out, part)
			}
		}
		return out
	}

	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Negotiate orders the available locales by the requested preferences and
// appends fallback. Each available locale appears at most once; requested
// or available entries that are not valid language tags are ignored.
func Negotiate(requested, available []string, fallback string) []string {
	var (
		supported []language.Tag
		names     []string
	)
	for _, a := range available {
		if t, err := language.Parse(a); err == nil {
			supported = append(supported, t)
			names = append(names, a)
		}
	}

	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	if len(supported) > 0 {
		matcher := language.NewMatcher(supported)
		for _, r := range requested {
			t, err := language.Parse(strings.TrimSpace(strings.SplitN(r, ";", 2)[0]))
			if err != nil {
				continue
			}
			if _, idx, conf := matcher.Match(t); conf != language.No {
				add(names[idx])
			}
		}
	}

	add(fallback)
	return out
}
