package localization

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/pitabwire/util"

	"github.com/pitabwire/fluent/bundle"
	"github.com/pitabwire/fluent/iterable"
	"github.com/pitabwire/fluent/resource"
)

// BundleGenerator builds one bundle per locale, in the given order, from
// resources held by loader. Bundles are only built when pulled. Missing
// resources are skipped and a locale with none of them yields no bundle.
func BundleGenerator(loader resource.Loader, locales []string, opts ...bundle.Option) GenerateBundles {
	return func(_ context.Context, resourceIDs []string) iterable.ContextStepper[*bundle.Bundle] {
		next := 0
		return iterable.ContextStepperFunc[*bundle.Bundle](
			func(ctx context.Context) (iterable.Result[*bundle.Bundle], error) {
				for next < len(locales) {
					locale := locales[next]
					b, err := buildBundle(ctx, loader, locale, resourceIDs, opts)
					if err != nil {
						return iterable.Result[*bundle.Bundle]{}, err
					}
					next++
					if b == nil {
						util.Log(ctx).WithField("locale", locale).Debug("no resources for locale, skipping")
						continue
					}
					return iterable.Value(b), nil
				}
				return iterable.Exhausted[*bundle.Bundle](), nil
			})
	}
}

func buildBundle(
	ctx context.Context,
	loader resource.Loader,
	locale string,
	resourceIDs []string,
	opts []bundle.Option,
) (*bundle.Bundle, error) {
	b := bundle.New([]string{locale}, opts...)
	found := 0
	for _, id := range resourceIDs {
		data, err := loader.Load(ctx, locale, id)
		if errors.Is(err, resource.ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path.Join(locale, id), err)
		}

		r, err := resource.Decode(data, id)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path.Join(locale, id), err)
		}
		b.AddResource(r)
		found++
	}
	if found == 0 {
		return nil, nil
	}
	return b, nil
}
