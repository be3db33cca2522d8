package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pitabwire/fluent"
	"github.com/pitabwire/fluent/config"
	"github.com/pitabwire/fluent/localization"
	"github.com/pitabwire/fluent/profiler"
	"github.com/pitabwire/fluent/version"
)

const (
	minArgsCommand = 2
	serviceName    = "fluent"
)

func main() {
	if len(os.Args) < minArgsCommand {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "translate":
		exitOnErr(cmdTranslate(os.Args[2:], os.Stdout))
	case "format":
		exitOnErr(cmdFormat(os.Args[2:], os.Stdout))
	case "locales":
		exitOnErr(cmdLocales(os.Args[2:], os.Stdout))
	case "serve":
		exitOnErr(cmdServe(os.Args[2:]))
	case "notify":
		exitOnErr(cmdNotify(os.Args[2:]))
	case "version":
		fmt.Fprintln(os.Stdout, version.String())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stdout, "fluent <command> [args]")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Commands:")
	fmt.Fprintln(os.Stdout, "  translate [--lang sw,en] [--config FILE] <file.html>")
	fmt.Fprintln(os.Stdout, "  format [--lang sw,en] [--config FILE] <id> [name=value ...]")
	fmt.Fprintln(os.Stdout, "  locales [--config FILE]")
	fmt.Fprintln(os.Stdout, "  serve [--dir DIR] [--addr :8080] [--preload] [--config FILE]")
	fmt.Fprintln(os.Stdout, "  notify [--config FILE] <locale> <resource-id>")
	fmt.Fprintln(os.Stdout, "  version")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Configuration is read from the environment (L10N_*, CACHE_*, LOG_*).")
}

type commonFlags struct {
	configFile string
	lang       string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "yaml configuration file")
	fs.StringVar(&c.lang, "lang", "", "comma separated language preferences")
}

func (c *commonFlags) service() (context.Context, *fluent.Service, error) {
	opts := []fluent.Option{}
	if c.configFile != "" {
		cfg, err := config.FromFile[config.ConfigurationDefault](c.configFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, fluent.WithConfig(&cfg))
	}

	ctx, svc := fluent.NewService(serviceName, opts...)
	if c.lang != "" {
		ctx = localization.ToContext(ctx, splitList(c.lang))
	}
	return ctx, svc, nil
}

func cmdTranslate(args []string, out io.Writer) error {
	var common commonFlags
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("html file is required")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ctx, svc, err := common.service()
	if err != nil {
		return err
	}
	defer svc.Stop(ctx)

	l10n, err := svc.Localizer(ctx)
	if err != nil {
		return err
	}
	return l10n.TranslateDocument(ctx, f, out)
}

func cmdFormat(args []string, out io.Writer) error {
	var common commonFlags
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("message id is required")
	}

	msgArgs, err := parseMessageArgs(fs.Args()[1:])
	if err != nil {
		return err
	}

	ctx, svc, err := common.service()
	if err != nil {
		return err
	}
	defer svc.Stop(ctx)

	value, err := svc.Format(ctx, fs.Arg(0), msgArgs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, value)
	return err
}

func cmdLocales(args []string, out io.Writer) error {
	var common commonFlags
	fs := flag.NewFlagSet("locales", flag.ContinueOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, svc, err := common.service()
	if err != nil {
		return err
	}
	defer svc.Stop(ctx)

	store := svc.ResourceStore()
	if store == nil {
		return fluent.ErrNoResourceStore
	}
	locales, err := store.Locales(ctx)
	if err != nil {
		return err
	}
	for _, l := range locales {
		if _, err = fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}

func cmdServe(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common.register(fs)
	dir := fs.String("dir", ".", "directory of pages to serve")
	addr := fs.String("addr", "", "listen address, defaults to HTTP_PORT")
	preload := fs.Bool("preload", false, "load every configured resource before serving")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, svc, err := common.service()
	if err != nil {
		return err
	}

	if cfg, ok := svc.Config().(config.ConfigurationProfiler); ok {
		pprofServer := profiler.NewServer()
		if err = pprofServer.StartIfEnabled(ctx, cfg); err != nil {
			return err
		}
		svc.AddCleanupMethod(func(ctx context.Context) {
			_ = pprofServer.Stop(ctx)
		})
	}

	if *preload {
		if err = svc.Preload(ctx); err != nil {
			svc.Log(ctx).WithError(err).Warn("some resources could not be preloaded")
		}
	}

	return svc.Run(ctx, *addr, svc.HTTPHandler(os.DirFS(*dir)))
}

func cmdNotify(args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("locale and resource id are required")
	}

	ctx, svc, err := common.service()
	if err != nil {
		return err
	}
	defer svc.Stop(ctx)

	return svc.PublishResourceChange(ctx, fs.Arg(0), fs.Arg(1))
}

// parseMessageArgs turns name=value pairs into message arguments. Integer
// and float values become numbers; everything else stays a string.
func parseMessageArgs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q, expected name=value", p)
		}
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[name] = i
			continue
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[name] = f
			continue
		}
		out[name] = value
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func exitOnErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
