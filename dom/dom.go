// Package dom localizes HTML trees. Elements annotated with data-l10n-id
// (and optionally data-l10n-args, a JSON object) have their content replaced
// by the formatted message.
package dom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pitabwire/util"
	"golang.org/x/net/html"

	"github.com/pitabwire/fluent/localization"
)

const (
	AttrID   = "data-l10n-id"
	AttrArgs = "data-l10n-args"
)

// ErrNilNode is returned when a nil node is given where an element is needed.
var ErrNilNode = errors.New("dom: nil node")

// Translator localizes a subtree.
type Translator interface {
	TranslateFragment(ctx context.Context, root *html.Node) error
}

// Localization binds a localization.Localization to HTML trees. Roots can
// be connected and translated together. Observation is a flag only; trees
// are not watched for changes.
type Localization struct {
	*localization.Localization

	roots     []*html.Node
	observing bool
}

func New(resourceIDs []string, generate localization.GenerateBundles) *Localization {
	return &Localization{Localization: localization.New(resourceIDs, generate)}
}

// TranslateFragment localizes every annotated element below root in
// document order, then root itself when it is annotated.
func (l *Localization) TranslateFragment(ctx context.Context, root *html.Node) error {
	if root == nil {
		return ErrNilNode
	}

	var elements []*html.Node
	for n := range root.Descendants() {
		if IsLocalized(n) {
			elements = append(elements, n)
		}
	}
	if IsLocalized(root) {
		elements = append(elements, root)
	}

	return l.TranslateElements(ctx, elements)
}

// TranslateElements localizes each of nodes. Nodes that are not annotated
// are left alone.
func (l *Localization) TranslateElements(ctx context.Context, nodes []*html.Node) error {
	for _, n := range nodes {
		if err := l.localizeElement(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (l *Localization) localizeElement(ctx context.Context, n *html.Node) error {
	id := attr(n, AttrID)
	if id == "" {
		return nil
	}

	var args map[string]any
	if raw := attr(n, AttrArgs); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			util.Log(ctx).WithField("id", id).WithField("args", raw).WithError(err).Warn("failed to parse l10n args")
			args = nil
		}
	}

	text, err := l.FormatValue(ctx, id, args)
	if err != nil {
		return fmt.Errorf("dom: translate %q: %w", id, err)
	}
	setTextContent(n, text)
	return nil
}

// ConnectRoot registers root for TranslateRoots. Connecting a root twice
// has no effect.
func (l *Localization) ConnectRoot(root *html.Node) error {
	if root == nil {
		return ErrNilNode
	}
	if !slices.Contains(l.roots, root) {
		l.roots = append(l.roots, root)
	}
	return nil
}

// DisconnectRoot reports whether root was connected.
func (l *Localization) DisconnectRoot(root *html.Node) bool {
	i := slices.Index(l.roots, root)
	if i < 0 {
		return false
	}
	l.roots = slices.Delete(l.roots, i, i+1)
	return true
}

// TranslateRoots translates the connected roots in the order they were
// connected.
func (l *Localization) TranslateRoots(ctx context.Context) error {
	for _, root := range l.roots {
		if err := l.TranslateFragment(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

func (l *Localization) PauseObserving() {
	l.observing = false
}

func (l *Localization) ResumeObserving() {
	l.observing = true
}

func (l *Localization) IsObserving() bool {
	return l.observing
}

// TranslateDocument parses an HTML document from r, localizes it and
// renders the result to w.
func (l *Localization) TranslateDocument(ctx context.Context, r io.Reader, w io.Writer) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("dom: parse document: %w", err)
	}
	if err = l.TranslateFragment(ctx, doc); err != nil {
		return err
	}
	return html.Render(w, doc)
}

// Localize translates node with t. A nil translator is a no-op.
func Localize(ctx context.Context, node *html.Node, t Translator) error {
	if t == nil {
		return nil
	}
	return t.TranslateFragment(ctx, node)
}

// IsLocalized reports whether node is an element carrying data-l10n-id.
func IsLocalized(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	_, ok := lookupAttr(node, AttrID)
	return ok
}

// SetAttributes annotates node with id and, when args is non-empty, its
// JSON-encoded arguments.
func SetAttributes(node *html.Node, id string, args map[string]any) error {
	if node == nil {
		return ErrNilNode
	}
	setAttr(node, AttrID, id)
	if len(args) == 0 {
		removeAttr(node, AttrArgs)
		return nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("dom: encode l10n args: %w", err)
	}
	setAttr(node, AttrArgs, string(raw))
	return nil
}

// GetAttributes reads the annotation of node.
func GetAttributes(node *html.Node) (localization.Key, error) {
	if node == nil {
		return localization.Key{}, ErrNilNode
	}

	key := localization.Key{ID: attr(node, AttrID)}
	if raw := attr(node, AttrArgs); raw != "" {
		if err := json.Unmarshal([]byte(raw), &key.Args); err != nil {
			return key, fmt.Errorf("dom: decode l10n args: %w", err)
		}
	}
	return key, nil
}

func setTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && strings.EqualFold(a.Key, key)
	})
}
