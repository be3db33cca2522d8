// Package http carries request language preferences into handler contexts.
package http

import (
	"net/http"

	"github.com/pitabwire/fluent/localization"
)

// LanguageHTTPMiddleware stores the request's language preferences in its
// context. An explicit ?lang= value is preferred over Accept-Language.
func LanguageHTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l := localization.ExtractLanguageFromHTTPRequest(r); len(l) > 0 {
			r = r.WithContext(localization.ToContext(r.Context(), l))
		}

		next.ServeHTTP(w, r)
	})
}
