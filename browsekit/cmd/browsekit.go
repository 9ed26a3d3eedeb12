// Command-line interface for running browser automation against the hosted browser.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"browsekit/browsekit/config"
	"browsekit/browsekit/services/batch"
	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/services/normalize"
	"browsekit/browsekit/services/program"
	"browsekit/browsekit/services/scraper"
	"browsekit/browsekit/services/shim"
	"browsekit/browsekit/utils/color"
	"browsekit/browsekit/utils/jsonutils"
	"browsekit/browsekit/utils/logging"
)

type rootOptions struct {
	token   string
	baseURL string
	noColor bool
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "browsekit",
		Short:         "Search, scrape and screenshot through a hosted browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.Disable()
			}
			if opts.verbose {
				logging.AppLogger, _ = zap.NewDevelopment()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.token, "token", "", "hosted browser token (overrides "+browserless.TokenEnv+")")
	root.PersistentFlags().StringVar(&opts.baseURL, "endpoint", "", "hosted browser base URL (overrides BROWSERLESS_URL)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newSearchCmd(opts),
		newScrapeCmd(opts),
		newScreenshotCmd(opts),
		newBatchCmd(opts),
		newMockHostCmd(),
	)
	return root
}

// newService loads configuration with the flag overrides applied.
func newService(opts *rootOptions) (*scraper.Service, config.Config, error) {
	cfg, err := config.LoadConfig(config.WithBrowserless(opts.token, opts.baseURL))
	if err != nil {
		return nil, config.Config{}, err
	}
	client, err := browserless.NewClient(cfg.Browserless(), browserless.WithLogger(logging.AppLogger))
	if err != nil {
		return nil, config.Config{}, err
	}
	svc := scraper.NewService(client,
		scraper.WithEngine(program.NewEngine(program.WithSearchEngine(program.SearchEngine{
			URL:            cfg.SearchEngineURL,
			InputSelector:  cfg.SearchInputSelector,
			ResultSelector: cfg.SearchResultSelector,
		}))),
		scraper.WithSequencer(batch.Sequencer{Delay: cfg.BatchDelay}),
		scraper.WithTimeouts(scraper.Timeouts{
			Search:     cfg.BrowserlessFunctionTimeout,
			Scrape:     cfg.BrowserlessScrapeTimeout,
			Screenshot: cfg.BrowserlessScreenshotTimeout,
		}),
		scraper.WithLogger(logging.AppLogger),
	)
	return svc, cfg, nil
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		maxResults int
		exclude    []string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a humanized search and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}
			results, err := svc.Search(cmd.Context(), args[0], scraper.SearchOptions{MaxResults: maxResults, ExcludeDomains: exclude})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), color.ColorInfo(fmt.Sprintf("%d results for %q", len(results), args[0])))
			fmt.Fprintln(cmd.OutOrStdout(), jsonutils.ToJSON(results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max", "n", program.DefaultMaxResults, "maximum results")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "domains to drop from the results")
	return cmd
}

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	var (
		selectors []string
		file      string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Extract named fields from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := program.SelectorSpec{}
			if file != "" {
				loaded, err := loadSelectors(file)
				if err != nil {
					return err
				}
				spec = loaded
			}
			if err := parseSelectorFlags(selectors, spec); err != nil {
				return err
			}
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}
			fields, err := svc.Scrape(cmd.Context(), args[0], spec, scraper.ScrapeOptions{Timeout: timeout})
			if err != nil {
				return err
			}
			reportNullFields(cmd.ErrOrStderr(), spec, fields)
			fmt.Fprintln(cmd.OutOrStdout(), jsonutils.ToJSON(fields))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&selectors, "selector", "s", nil, "name=css, or name[]=css for every match (repeatable)")
	cmd.Flags().StringVarP(&file, "selectors-file", "f", "", "YAML file of name: selector")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "call timeout (default BROWSERLESS_SCRAPE_TIMEOUT)")
	return cmd
}

func newScreenshotCmd(opts *rootOptions) *cobra.Command {
	var (
		out      string
		format   string
		quality  int
		fullPage bool
	)
	cmd := &cobra.Command{
		Use:   "screenshot <url>",
		Short: "Capture a page and write the image to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}
			img, err := svc.Screenshot(cmd.Context(), args[0], scraper.ScreenshotOptions{Format: format, Quality: quality, FullPage: fullPage})
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("screenshot-%d.%s", time.Now().UnixMilli(), extension(format))
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.ColorSuccess(fmt.Sprintf("wrote %s (%d bytes)", out, len(img))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().StringVar(&format, "type", program.DefaultScreenshotFormat, "png, jpeg or webp")
	cmd.Flags().IntVar(&quality, "quality", 0, "jpeg/webp quality 0..100 (0 = default)")
	cmd.Flags().BoolVar(&fullPage, "full-page", false, "capture the full scrollable page")
	return cmd
}

// reportNullFields lists, dimmed, the selector keys that extracted nothing.
func reportNullFields(w io.Writer, spec program.SelectorSpec, fields normalize.Fields) {
	for _, name := range spec.Keys() {
		if fields[name] == nil {
			fmt.Fprintln(w, color.ColorMuted(name+": null"))
		}
	}
}

func extension(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "jpg"
	case "webp":
		return "webp"
	}
	return "png"
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var (
		file       string
		maxResults int
	)
	cmd := &cobra.Command{
		Use:   "batch [query...]",
		Short: "Search several queries one after another",
		RunE: func(cmd *cobra.Command, args []string) error {
			bf := batchFile{Queries: args}
			if file != "" {
				loaded, err := loadBatchFile(file)
				if err != nil {
					return err
				}
				bf = loaded
				bf.Queries = append(bf.Queries, args...)
			}
			if len(bf.Queries) == 0 {
				return errors.New("no queries: pass them as arguments or with --file")
			}
			if cmd.Flags().Changed("max") || bf.MaxResults == 0 {
				bf.MaxResults = maxResults
			}

			svc, cfg, err := newService(opts)
			if err != nil {
				return err
			}
			if len(bf.Queries) > cfg.BatchMaxQueries {
				return fmt.Errorf("%d queries exceeds BATCH_MAX_QUERIES=%d", len(bf.Queries), cfg.BatchMaxQueries)
			}

			w := cmd.ErrOrStderr()
			report := svc.RunBatch(cmd.Context(), bf.Queries, scraper.BatchOptions{
				MaxResults:     bf.MaxResults,
				ExcludeDomains: bf.ExcludeDomains,
			}, func(item scraper.BatchItem) {
				prefix := color.ColorPrompt(fmt.Sprintf("[%d/%d]", item.Index+1, len(bf.Queries)))
				if item.OK() {
					fmt.Fprintf(w, "%s %s %s\n", prefix, item.Key, color.ColorSuccess(fmt.Sprintf("%d results", len(item.Value))))
				} else {
					fmt.Fprintf(w, "%s %s %s\n", prefix, item.Key, color.ColorFail(item.Err.Error()))
				}
			})
			fmt.Fprintln(w, color.ColorInfo(fmt.Sprintf("total %d, succeeded %d, failed %d", report.Total, report.Succeeded, report.Failed)))

			out := make([]map[string]any, len(report.Items))
			for i, item := range report.Items {
				entry := map[string]any{"query": item.Key, "success": item.OK()}
				if item.OK() {
					entry["results"] = item.Value
				} else {
					entry["error"] = item.Err.Error()
				}
				out[i] = entry
			}
			fmt.Fprintln(cmd.OutOrStdout(), jsonutils.ToJSON(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML list of queries, or {queries, maxResults, excludeDomains}")
	cmd.Flags().IntVarP(&maxResults, "max", "n", program.DefaultMaxResults, "maximum results per query")
	return cmd
}

func newMockHostCmd() *cobra.Command {
	var (
		addr     string
		fixtures string
		latency  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mock-host",
		Short: "Serve a local stand-in for the hosted browser from static HTML fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			host := &shim.Host{Latency: latency, Interpreter: &shim.Interpreter{}}
			if fixtures == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), color.ColorWarning("no --fixtures: every navigation will fail"))
			} else {
				fx, err := loadFixtures(fixtures)
				if err != nil {
					return err
				}
				host.Token = fx.token
				host.Interpreter.Pages = fx.pages
				host.Interpreter.Fallback = fx.fallback
				if fx.results != "" {
					results := fx.results
					host.Interpreter.SearchResults = func(string) (string, error) { return results, nil }
				}
				if fx.token == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), color.ColorWarning("no token in fixtures: any token is accepted"))
				}
			}

			srv := &http.Server{Addr: addr, Handler: host, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			fmt.Fprintln(cmd.OutOrStdout(), color.ColorInfo("mock host listening on "+addr))

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9222", "listen address")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML fixtures file (token, pages, fallback, results)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "delay every response")
	return cmd
}
