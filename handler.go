package fluent

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pitabwire/fluent/localization"
	lhttp "github.com/pitabwire/fluent/localization/interceptors/http"
	"github.com/pitabwire/fluent/ratelimiter"
)

const healthCheckPath = "/healthz"

// HTTPHandler serves the files of site. HTML pages are translated into the
// language negotiated from the request (?lang= or Accept-Language); other
// files are served as they are. Pages count against the rate limit when
// one is configured.
func (s *Service) HTTPHandler(site fs.FS) http.Handler {
	pages := ratelimiter.RateLimitMiddleware(s.limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, site, pagePath(r.URL.Path))
	}))

	files := http.FileServerFS(site)

	mux := http.NewServeMux()
	mux.HandleFunc(healthCheckPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := pagePath(r.URL.Path)
		if !isHTML(name) {
			files.ServeHTTP(w, r)
			return
		}
		pages.ServeHTTP(w, r)
	}))

	return otelhttp.NewHandler(lhttp.LanguageHTTPMiddleware(mux), s.Name())
}

func (s *Service) servePage(w http.ResponseWriter, r *http.Request, site fs.FS, name string) {
	ctx, span := tracer.Start(r.Context(), "TranslatePage")
	var err error
	defer func() { tracer.End(ctx, span, err) }()

	f, err := site.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.Log(ctx).WithError(err).WithField("page", name).Error("could not open page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	l10n, err := s.Localizer(ctx)
	if err != nil {
		s.Log(ctx).WithError(err).Error("no localizer available")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	var page bytes.Buffer
	if err = l10n.TranslateDocument(ctx, f, &page); err != nil {
		s.Log(ctx).WithError(err).WithField("page", name).Error("could not translate page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if locales := s.Locales(localization.FromContext(ctx)); len(locales) > 0 {
		w.Header().Set("Content-Language", locales[0])
	}
	_, _ = page.WriteTo(w)
}

func pagePath(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || strings.HasSuffix(urlPath, "/") {
		name = path.Join(name, "index.html")
	}
	return name
}

func isHTML(name string) bool {
	switch path.Ext(name) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
