// Command datadocs builds, serves and maintains Data Docs: HTML sites
// rendered from stored expectation suites and validation results.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/go-data-docs/config"
	"github.com/sardine-ai/go-data-docs/model"
	"github.com/sardine-ai/go-data-docs/notebook"
	"github.com/sardine-ai/go-data-docs/publish"
	"github.com/sardine-ai/go-data-docs/server"
	"github.com/sardine-ai/go-data-docs/site"
	"github.com/sardine-ai/go-data-docs/store"
)

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), `Usage: datadocs <command> [flags]

Commands:
  build     render Data Docs sites from stored artifacts
  list      list configured sites and their index URLs
  clean     delete a site's published objects
  check     validate the project configuration
  serve     serve sites over HTTP with periodic rebuilds
  notebook  render a suite-edit notebook

Run datadocs <command> -h for command flags.
`)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "build":
		err = runBuild(rest)
	case "list":
		err = runList(rest)
	case "clean":
		err = runClean(rest)
	case "check":
		err = runCheck(rest)
	case "serve":
		err = runServe(rest)
	case "notebook":
		err = runNotebook(rest)
	case "help":
		usage()
	default:
		usage()
		logrus.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

// loadConfig reads the project configuration. A missing file at the default
// location is not an error: the project then runs on local filesystem
// conventions alone.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil && path == config.DefaultPath && errors.Is(err, fs.ErrNotExist) {
		return config.Load(nil)
	}
	return cfg, err
}

func runBuild(args []string) error {
	flags := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	siteName := flags.String("site", "", "build only the named site")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	builder, err := site.FromConfig(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *siteName != "" {
		manifest, err := builder.BuildSite(ctx, *siteName)
		if err != nil {
			return err
		}
		printManifest(builder, manifest)
		return nil
	}
	manifests, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	for _, manifest := range manifests {
		printManifest(builder, manifest)
	}
	return nil
}

func printManifest(builder *site.Builder, manifest *site.Manifest) {
	st, err := builder.Site(manifest.Site)
	if err != nil {
		return
	}
	if u := st.IndexURL(); u != nil {
		fmt.Printf("%s: %d pages, %s\n", manifest.Site, len(manifest.Pages), u)
		return
	}
	fmt.Printf("%s: %d pages\n", manifest.Site, len(manifest.Pages))
}

func runList(args []string) error {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	builder, err := site.FromConfig(cfg)
	if err != nil {
		return err
	}

	for _, st := range builder.Sites {
		location := "(no url)"
		if u := st.IndexURL(); u != nil {
			location = u.String()
		}
		fmt.Printf("%-24s %s\n", st.Name, location)
	}
	return nil
}

func runClean(args []string) error {
	flags := flag.NewFlagSet("clean", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	siteName := flags.String("site", "", "site to clean (required)")
	yes := flags.Bool("yes", false, "skip the confirmation prompt")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *siteName == "" {
		return errors.New("clean: -site is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	builder, err := site.FromConfig(cfg)
	if err != nil {
		return err
	}
	st, err := builder.Site(*siteName)
	if err != nil {
		return err
	}

	if !*yes {
		fmt.Printf("Delete all published objects of site %q in store %q? [y/N] ", st.Name, st.Store.GetName())
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
		default:
			fmt.Println("aborted")
			return nil
		}
	}
	return builder.Clean(context.Background(), *siteName)
}

func runCheck(args []string) error {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	fmt.Printf("configuration OK: %d stores, %d sites\n", len(cfg.Stores), len(cfg.Sites))
	return nil
}

func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	siteName := flags.String("site", "", "serve only the named site")
	addr := flags.String("addr", "", "listen address (overrides the configuration)")
	authKey := flags.String("auth-key", "", "API key required on site pages (overrides the configuration)")
	interval := flags.Duration("interval", 0, "rebuild interval (overrides the configuration)")
	watch := flags.Bool("watch", false, "rebuild when local artifact stores change")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	serverCfg := cfg.Server
	if *addr != "" {
		serverCfg.Addr = *addr
	}
	if *authKey != "" {
		serverCfg.AuthKey = *authKey
	}
	if *interval > 0 {
		serverCfg.RefreshInterval = *interval
	}
	if *watch {
		serverCfg.Watch = true
	}

	builder, err := site.FromConfig(cfg)
	if err != nil {
		return err
	}
	if *siteName != "" {
		st, err := builder.Site(*siteName)
		if err != nil {
			return err
		}
		builder.Sites = []site.Site{st}
	}

	srv := server.NewServer(builder.Sites)
	srv.AuthKey = serverCfg.AuthKey

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := publish.NewPublisher(ctx, builder, serverCfg.RefreshInterval, srv.RecordBuild)
	defer publisher.Close()

	if serverCfg.Watch {
		if err := publisher.Watch(); err != nil {
			if !errors.Is(err, publish.ErrNothingToWatch) {
				return err
			}
			logrus.WithError(err).Warn("watch disabled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(serverCfg.Addr)
	}()

	select {
	case <-ctx.Done():
		logrus.Info("shutting down")
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

func runNotebook(args []string) error {
	flags := flag.NewFlagSet("notebook", flag.ExitOnError)
	configPath := flags.String("config", config.DefaultPath, "path to the project configuration")
	suiteName := flags.String("suite", "", "expectation suite to edit (required)")
	out := flags.String("out", "", "output notebook path (default uncommitted/edit_<suite>.ipynb)")
	templates := flags.String("templates", "", "directory of custom notebook templates")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *suiteName == "" {
		return errors.New("notebook: -suite is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	expectations, err := cfg.ExpectationsBackend()
	if err != nil {
		return err
	}

	data, err := expectations.Get(context.Background(), store.Key{*suiteName + ".json"})
	if err != nil {
		return fmt.Errorf("load suite %q: %w", *suiteName, err)
	}
	suite, err := model.ParseSuite(data)
	if err != nil {
		return fmt.Errorf("load suite %q: %w", *suiteName, err)
	}

	path := *out
	if path == "" {
		path = filepath.Join(cfg.BaseDir(), "uncommitted", "edit_"+suite.Name+".ipynb")
	}
	renderer := &notebook.SuiteEditRenderer{TemplateDir: *templates}
	if err := renderer.RenderToFile(suite, nil, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
