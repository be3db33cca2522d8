// Package localization resolves messages through an ordered, lazily
// generated chain of bundles and carries language preferences through
// request contexts.
package localization

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pitabwire/util"

	"github.com/pitabwire/fluent/bundle"
	"github.com/pitabwire/fluent/iterable"
)

// ErrNoGenerator is returned when a Localization has no bundle generator.
var ErrNoGenerator = errors.New("localization: no bundle generator")

// Key names a message and the arguments to format it with.
type Key struct {
	ID   string         `json:"id"`
	Args map[string]any `json:"args,omitempty"`
}

// GenerateBundles produces the bundles for a set of resource ids, most
// preferred first. Bundles are pulled from the returned source only as far
// as formatting needs them.
type GenerateBundles func(ctx context.Context, resourceIDs []string) iterable.ContextStepper[*bundle.Bundle]

// Localization formats messages against the first bundle that has them.
// Generated bundles are cached until the resource ids change.
//
// A Localization is not safe for concurrent use.
type Localization struct {
	resourceIDs []string
	generate    GenerateBundles
	bundles     *iterable.AsyncCached[*bundle.Bundle]
}

func New(resourceIDs []string, generate GenerateBundles) *Localization {
	return &Localization{
		resourceIDs: slices.Clone(resourceIDs),
		generate:    generate,
	}
}

func (l *Localization) ResourceIDs() []string {
	return slices.Clone(l.resourceIDs)
}

// AddResourceIDs appends resource ids and drops the generated bundles.
func (l *Localization) AddResourceIDs(ids ...string) {
	l.resourceIDs = append(l.resourceIDs, ids...)
	l.bundles = nil
}

// RemoveResourceIDs removes every occurrence of ids, drops the generated
// bundles and returns how many ids remain.
func (l *Localization) RemoveResourceIDs(ids ...string) int {
	l.resourceIDs = slices.DeleteFunc(l.resourceIDs, func(id string) bool {
		return slices.Contains(ids, id)
	})
	l.bundles = nil
	return len(l.resourceIDs)
}

// OnChange drops the generated bundles. When eager is set, the chain is
// regenerated and its first bundle prefetched right away.
func (l *Localization) OnChange(ctx context.Context, eager bool) error {
	l.bundles = nil
	if !eager {
		return nil
	}

	bundles, err := l.Bundles(ctx)
	if err != nil {
		return err
	}
	return bundles.TouchNext(ctx)
}

// Bundles returns the cached bundle chain, generating it on first use.
func (l *Localization) Bundles(ctx context.Context) (*iterable.AsyncCached[*bundle.Bundle], error) {
	if l.bundles != nil {
		return l.bundles, nil
	}
	if l.generate == nil {
		return nil, ErrNoGenerator
	}

	bundles, err := iterable.NewAsync(l.generate(ctx, l.ResourceIDs()))
	if err != nil {
		return nil, fmt.Errorf("localization: generate bundles: %w", err)
	}
	l.bundles = bundles
	return bundles, nil
}

// FormatValue formats id with the first bundle holding a non-empty value
// for it. When no bundle does, the id itself is returned.
func (l *Localization) FormatValue(ctx context.Context, id string, args map[string]any) (string, error) {
	bundles, err := l.Bundles(ctx)
	if err != nil {
		return id, err
	}

	for b, iterErr := range bundles.Replay().All(ctx) {
		if iterErr != nil {
			return id, iterErr
		}
		if m, ok := b.GetMessage(id); ok && m.Value != "" {
			return b.FormatPattern(m.Value, args), nil
		}
	}

	util.Log(ctx).WithField("id", id).Debug("no bundle provides message, using its id")
	return id, nil
}

// FormatValues formats keys in order. Keys without an id format to "".
func (l *Localization) FormatValues(ctx context.Context, keys []Key) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.ID == "" {
			out = append(out, "")
			continue
		}
		v, err := l.FormatValue(ctx, k.ID, k.Args)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
