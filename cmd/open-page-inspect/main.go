// Command open-page-inspect checks one page document for count
// inconsistencies and prints its inspection report.
//
//	open-page-inspect [flags] <file|http(s)-url|->
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/technopolitica/open-page/internal/client"
	"github.com/technopolitica/open-page/internal/domain"
	"github.com/technopolitica/open-page/internal/logger"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

type rawPage = domain.Page[json.RawMessage]

func readPage(ctx context.Context, arg string, stdin io.Reader, pageClient *client.Client) (page rawPage, source domain.URL, err error) {
	if arg == "-" {
		page, err = client.DecodePage[json.RawMessage](stdin)
		return
	}
	if source, err = domain.ParseURL(arg); err == nil && source.IsHTTP() {
		page, err = client.FetchPage[json.RawMessage](ctx, pageClient, source)
		return
	}
	source = domain.URL{}
	file, err := os.Open(arg)
	if err != nil {
		return
	}
	defer file.Close()
	page, err = client.DecodePage[json.RawMessage](file)
	return
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("open-page-inspect", flag.ContinueOnError)
	flags.SetOutput(stderr)
	quiet := flags.Bool("quiet", false, "do not print the report, only set the exit code")
	timeout := flags.Duration("timeout", 10*time.Second, "timeout for fetching http(s) sources")
	logLevel := flags.String("log-level", "warn", "one of debug, info, warn, error")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <file|http(s)-url|->\n", flags.Name())
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return exitError
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitError
	}

	appLogger, err := logger.NewWithWriter(&logger.Config{
		Level:       *logLevel,
		Format:      "console",
		Env:         "dev",
		ServiceName: "open-page-inspect",
	}, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return inspect(flags.Arg(0), stdin, stdout, *quiet, *timeout, appLogger)
}

func inspect(arg string, stdin io.Reader, stdout io.Writer, quiet bool, timeout time.Duration, appLogger zerolog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pageClient := client.New(&http.Client{}, appLogger)
	page, source, err := readPage(ctx, arg, stdin, pageClient)
	if err != nil {
		appLogger.Error().Err(err).Str("input", arg).Msg("failed to read page")
		return exitError
	}

	report := domain.NewInspectionReport(page)
	report.Source = source
	if !quiet {
		encoder := json.NewEncoder(stdout)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			appLogger.Error().Err(err).Msg("failed to write report")
			return exitError
		}
	}
	if !report.Valid {
		return exitInvalid
	}
	return exitValid
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
