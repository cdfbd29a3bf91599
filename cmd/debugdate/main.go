// Command debugdate fetches one URL and prints what every date strategy finds.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pubfilter/internal/app"
	"github.com/hyperifyio/pubfilter/internal/extract"
	"github.com/hyperifyio/pubfilter/internal/fetch"
	"github.com/hyperifyio/pubfilter/internal/pubdate"
	"github.com/hyperifyio/pubfilter/internal/resolve"
	"github.com/hyperifyio/pubfilter/internal/search"
	"github.com/hyperifyio/pubfilter/internal/trace"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		timeout time.Duration
		verbose bool
	)
	flag.DurationVar(&timeout, "timeout", 8*time.Second, "Fetch timeout")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: debugdate [-timeout 8s] [-v] <url>")
		os.Exit(2)
	}
	url := flag.Arg(0)

	if err := app.LoadEnvFiles(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env")
	}
	var cfg app.Config
	app.ApplyEnvToConfig(&cfg)
	client := &fetch.Client{UserAgent: cfg.FetchUA}

	ctx := context.Background()
	resp, err := client.Fetch(ctx, url, timeout)
	if err != nil {
		fmt.Println("err:", err)
		os.Exit(1)
	}
	fmt.Printf("kind: %s  content-type: %q  bytes: %d\n", resp.Kind, resp.ContentType, len(resp.Body))
	if resp.Kind == pubdate.KindMarkup {
		page := extract.FromHTML(resp.Body)
		fmt.Printf("title: %q\n", page.Title)
		fmt.Printf("text:  %q\n", extract.Prefix(page.Text, 160))
	}
	for _, a := range (pubdate.Parser{}).Explain(resp.Document()) {
		if a.OK {
			fmt.Printf("%-10s %s\n", a.Strategy, a.Date)
		} else {
			fmt.Printf("%-10s -\n", a.Strategy)
		}
	}

	// Same document through the resolver, so the decision matches a batch run.
	var rec trace.Recorder
	r := &resolve.Resolver{Fetcher: prefetched{resp}, Sink: trace.Tee{trace.Log{Logger: log.Logger}, &rec}}
	out := r.Resolve(ctx, &search.Result{URL: url}, timeout)
	if out.Dated() {
		fmt.Printf("resolved: %s (%s via %s)\n", out.Date, out.Source, out.Strategy)
		return
	}
	reason := ""
	for _, e := range rec.Events() {
		if e.Kind == trace.KindUnknown {
			reason = e.Reason
		}
	}
	fmt.Printf("resolved: %s (%s)\n", out.Source, reason)
}

type prefetched struct{ resp fetch.Response }

func (p prefetched) Fetch(context.Context, string, time.Duration) (fetch.Response, error) {
	return p.resp, nil
}
