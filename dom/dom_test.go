package dom_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/net/html"

	"github.com/pitabwire/fluent/bundle"
	"github.com/pitabwire/fluent/dom"
	"github.com/pitabwire/fluent/iterable"
	"github.com/pitabwire/fluent/resource"
)

type DOMSuite struct {
	suite.Suite

	ctx  context.Context
	l10n *dom.Localization
}

func TestDOMSuite(t *testing.T) {
	suite.Run(t, new(DOMSuite))
}

func (s *DOMSuite) SetupTest() {
	s.ctx = context.Background()

	sw := bundle.New([]string{"sw"})
	sw.AddResource(resource.FromMap(map[string]string{
		"greeting": "Habari ${name}",
		"title":    "Karibu",
	}))
	en := bundle.New([]string{"en"})
	en.AddResource(resource.FromMap(map[string]string{
		"greeting": "Hello ${name}",
		"footer":   "Goodbye",
	}))

	s.l10n = dom.New([]string{"main.ftl"}, func(_ context.Context, _ []string) iterable.ContextStepper[*bundle.Bundle] {
		return iterable.Synchronous[*bundle.Bundle](iterable.FromSlice([]*bundle.Bundle{sw, en}))
	})
}

func (s *DOMSuite) parse(src string) *html.Node {
	doc, err := html.Parse(strings.NewReader(src))
	s.Require().NoError(err)
	return doc
}

func (s *DOMSuite) render(n *html.Node) string {
	var buf bytes.Buffer
	s.Require().NoError(html.Render(&buf, n))
	return buf.String()
}

func find(n *html.Node, tag string) *html.Node {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.Data == tag {
			return d
		}
	}
	return nil
}

func (s *DOMSuite) TestTranslateFragment() {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "plain id",
			body:     `<h1 data-l10n-id="title">x</h1>`,
			expected: `<h1 data-l10n-id="title">Karibu</h1>`,
		},
		{
			name:     "args",
			body:     `<p data-l10n-id="greeting" data-l10n-args='{"name":"Juma"}'></p>`,
			expected: `<p data-l10n-id="greeting" data-l10n-args="{&#34;name&#34;:&#34;Juma&#34;}">Habari Juma</p>`,
		},
		{
			name:     "malformed args are ignored",
			body:     `<p data-l10n-id="greeting" data-l10n-args="{oops">old</p>`,
			expected: `<p data-l10n-id="greeting" data-l10n-args="{oops">Habari ${name}</p>`,
		},
		{
			name:     "fallback bundle",
			body:     `<footer data-l10n-id="footer"><b>old</b> text</footer>`,
			expected: `<footer data-l10n-id="footer">Goodbye</footer>`,
		},
		{
			name:     "unknown id",
			body:     `<span data-l10n-id="missing">old</span>`,
			expected: `<span data-l10n-id="missing">missing</span>`,
		},
		{
			name:     "unannotated untouched",
			body:     `<span>keep</span>`,
			expected: `<span>keep</span>`,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			doc := s.parse("<html><body>" + tc.body + "</body></html>")
			s.Require().NoError(s.l10n.TranslateFragment(s.ctx, doc))
			s.Equal(tc.expected, strings.TrimSuffix(strings.TrimPrefix(
				s.render(find(doc, "body")), "<body>"), "</body>"))
		})
	}
}

func (s *DOMSuite) TestTranslateFragmentIncludesRoot() {
	doc := s.parse(`<div data-l10n-id="title"><span data-l10n-id="footer"></span></div>`)
	div := find(doc, "div")
	span := find(div, "span")

	s.Require().NoError(s.l10n.TranslateFragment(s.ctx, div))
	s.Equal("Karibu", div.FirstChild.Data)
	s.Equal("Goodbye", span.FirstChild.Data, "descendant was translated before the root replaced it")
	s.Nil(div.FirstChild.NextSibling)
}

func (s *DOMSuite) TestTranslateElements() {
	doc := s.parse(`<p data-l10n-id="title"></p><p data-l10n-id="footer"></p>`)
	first := find(doc, "p")

	s.Require().NoError(s.l10n.TranslateElements(s.ctx, []*html.Node{first}))
	s.Equal("Karibu", first.FirstChild.Data)
	s.Nil(first.NextSibling.FirstChild)
}

func (s *DOMSuite) TestRoots() {
	doc := s.parse(`<section data-l10n-id="title"></section><aside data-l10n-id="footer"></aside>`)
	section, aside := find(doc, "section"), find(doc, "aside")

	s.Require().ErrorIs(s.l10n.ConnectRoot(nil), dom.ErrNilNode)
	s.Require().NoError(s.l10n.ConnectRoot(section))
	s.Require().NoError(s.l10n.ConnectRoot(section))
	s.Require().NoError(s.l10n.ConnectRoot(aside))
	s.True(s.l10n.DisconnectRoot(aside))
	s.False(s.l10n.DisconnectRoot(aside))

	s.Require().NoError(s.l10n.TranslateRoots(s.ctx))
	s.Equal("Karibu", section.FirstChild.Data)
	s.Nil(aside.FirstChild)
}

func (s *DOMSuite) TestObserving() {
	s.False(s.l10n.IsObserving())
	s.l10n.ResumeObserving()
	s.True(s.l10n.IsObserving())
	s.l10n.PauseObserving()
	s.False(s.l10n.IsObserving())
}

func (s *DOMSuite) TestAttributes() {
	doc := s.parse(`<p></p>`)
	p := find(doc, "p")
	s.False(dom.IsLocalized(p))

	s.Require().NoError(dom.SetAttributes(p, "greeting", map[string]any{"name": "Ann"}))
	s.True(dom.IsLocalized(p))

	key, err := dom.GetAttributes(p)
	s.Require().NoError(err)
	s.Equal("greeting", key.ID)
	s.Equal(map[string]any{"name": "Ann"}, key.Args)

	s.Require().NoError(dom.SetAttributes(p, "title", nil))
	key, err = dom.GetAttributes(p)
	s.Require().NoError(err)
	s.Equal("title", key.ID)
	s.Nil(key.Args)

	s.Require().ErrorIs(dom.SetAttributes(nil, "x", nil), dom.ErrNilNode)
	_, err = dom.GetAttributes(nil)
	s.Require().ErrorIs(err, dom.ErrNilNode)
	s.False(dom.IsLocalized(nil))
}

func (s *DOMSuite) TestLocalize() {
	doc := s.parse(`<p data-l10n-id="title"></p>`)
	s.Require().NoError(dom.Localize(s.ctx, doc, nil))
	s.Nil(find(doc, "p").FirstChild)

	s.Require().NoError(dom.Localize(s.ctx, doc, s.l10n))
	s.Equal("Karibu", find(doc, "p").FirstChild.Data)
}

func (s *DOMSuite) TestTranslateDocument() {
	var out bytes.Buffer
	err := s.l10n.TranslateDocument(s.ctx,
		strings.NewReader(`<html><head><title data-l10n-id="title">t</title></head><body></body></html>`), &out)
	s.Require().NoError(err)
	s.Contains(out.String(), `<title data-l10n-id="title">Karibu</title>`)
}
