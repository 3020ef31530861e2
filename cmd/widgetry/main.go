// Package main provides the widgetry command, which reads or fills a page
// through views described in YAML.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/widgetry/pkg/config"
	"github.com/entrhq/widgetry/pkg/driver/htmldom"
	"github.com/entrhq/widgetry/pkg/driver/playwright"
	"github.com/entrhq/widgetry/pkg/logging"
	"github.com/entrhq/widgetry/pkg/viewdef"
	"github.com/entrhq/widgetry/pkg/widget"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	ViewsFile   string
	View        string
	URL         string
	HTMLFile    string
	FillFile    string
	Table       string
	SaveFile    string
	Color       bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("widgetry v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Printf("widgetry: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.ViewsFile, "views", "", "Path to view definitions (YAML)")
	flag.StringVar(&cli.View, "view", "", "Name of the view to instantiate")
	flag.StringVar(&cli.URL, "url", "", "Page to open in a live browser")
	flag.StringVar(&cli.HTMLFile, "html", "", "Saved HTML document to load instead of a live page")
	flag.StringVar(&cli.FillFile, "fill", "", "YAML mapping to fill into the view before reading")
	flag.StringVar(&cli.Table, "table", "", "Dotted path of a table field to print as a table")
	flag.StringVar(&cli.SaveFile, "save", "", "Write the resulting document to this file (with -html)")
	flag.BoolVar(&cli.Color, "color", false, "Highlight JSON output")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "widgetry - read and fill pages through declarative views\n\n")
		fmt.Fprintf(os.Stderr, "Usage: widgetry -views views.yaml -view Name (-url URL | -html FILE) [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  widgetry -views views.yaml -view Login -url https://example.com/login\n")
		fmt.Fprintf(os.Stderr, "  widgetry -views views.yaml -view Stock -html stock.html -table stock\n")
		fmt.Fprintf(os.Stderr, "  widgetry -views views.yaml -view Login -html login.html -fill login.yaml -save out.html\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	if cli.ViewsFile == "" || cli.View == "" {
		return errors.New("-views and -view are required")
	}
	if (cli.URL == "") == (cli.HTMLFile == "") {
		return errors.New("exactly one of -url and -html is required")
	}
	if cli.SaveFile != "" && cli.HTMLFile == "" {
		return errors.New("-save only works with -html")
	}

	cfg := config.Default()
	if cli.ConfigFile != "" {
		loaded, err := config.Load(cli.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewWriterLogger("widgetry", os.Stderr, cfg.Level())

	reg, err := viewdef.Load(cli.ViewsFile)
	if err != nil {
		return err
	}
	class, ok := reg.Get(cli.View)
	if !ok {
		return fmt.Errorf("view %q not found (available: %s)", cli.View, strings.Join(reg.Names(), ", "))
	}

	var fill map[string]any
	if cli.FillFile != "" {
		data, err := os.ReadFile(cli.FillFile)
		if err != nil {
			return fmt.Errorf("failed to read fill file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fill); err != nil {
			return fmt.Errorf("failed to parse fill file: %w", err)
		}
	}

	driver, closeDriver, err := openDriver(cli, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDriver()

	if err := ctx.Err(); err != nil {
		return err
	}

	browser := widget.NewBrowser(driver,
		widget.WithLogger(logger),
		widget.WithTimeout(cfg.Wait.Timeout),
		widget.WithPollInterval(cfg.Wait.PollInterval),
		widget.WithVersion(cfg.Version),
	)
	view, err := browser.View(class)
	if err != nil {
		return err
	}

	if fill != nil {
		changed, err := view.Fill(fill)
		if err != nil {
			return fmt.Errorf("fill failed: %w", err)
		}
		logger.Infof("fill of %s changed the page: %t", class.Name(), changed)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if cli.SaveFile != "" {
		doc, ok := driver.(*htmldom.Driver)
		if !ok {
			return errors.New("-save needs an HTML document driver")
		}
		rendered, err := doc.Render()
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		if err := os.WriteFile(cli.SaveFile, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cli.SaveFile, err)
		}
	}

	if cli.Table != "" {
		table, err := findTable(view, cli.Table)
		if err != nil {
			return err
		}
		out, err := renderTable(table)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	values, err := view.ReadValues()
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	return writeJSON(os.Stdout, values, cli.Color)
}

// openDriver returns the page driver and a function releasing it.
func openDriver(cli *CLIConfig, cfg *config.Config, logger *logging.Logger) (widget.Driver, func(), error) {
	if cli.HTMLFile != "" {
		f, err := os.Open(cli.HTMLFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cli.HTMLFile, err)
		}
		defer f.Close()
		var opts []htmldom.Option
		if cfg.Version != "" {
			opts = append(opts, htmldom.WithVersion(cfg.Version))
		}
		d, err := htmldom.Parse(f, opts...)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	}

	manager := playwright.NewSessionManager(
		playwright.WithLogger(logger.With("playwright")),
		playwright.WithInstall(cfg.Browser.Install),
	)
	if err := manager.Initialize(); err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}

	session, err := manager.StartSession("", playwright.SessionOptions{
		Headless: cfg.Browser.Headless,
		Engine:   cfg.Browser.Engine,
		Viewport: &playwright.Viewport{
			Width:  cfg.Browser.Viewport.Width,
			Height: cfg.Browser.Viewport.Height,
		},
		Timeout:           float64(cfg.Browser.Timeout.Milliseconds()),
		Version:           cfg.Version,
		VersionExpression: cfg.VersionExpression,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	if err := session.Navigate(cli.URL, playwright.NavigateOptions{WaitUntil: "load"}); err != nil {
		release()
		return nil, nil, err
	}
	logger.Infof("opened %s", session.CurrentURL)
	return session, release, nil
}

// findTable walks a dotted path of view fields down to a table.
func findTable(view *widget.View, path string) (*widget.Table, error) {
	parts := strings.Split(path, ".")
	current := view
	for i, part := range parts {
		child, err := current.Child(part)
		if err != nil {
			return nil, err
		}
		if i == len(parts)-1 {
			table, ok := child.(*widget.Table)
			if !ok {
				return nil, fmt.Errorf("%s is %T, not a table", path, child)
			}
			return table, nil
		}
		next, ok := child.(*widget.View)
		if !ok {
			return nil, fmt.Errorf("%s is %T, not a view", strings.Join(parts[:i+1], "."), child)
		}
		current = next
	}
	return nil, fmt.Errorf("empty table path")
}
