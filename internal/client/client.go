// Package client reads page documents served by other services.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/technopolitica/open-page/internal/domain"
)

var ErrMalformedPage = errors.New("malformed page document")
var ErrUnsupportedSource = errors.New("unsupported page source")
var ErrTrailingData = errors.New("unexpected data after JSON value")

// MaxPageBytes bounds how much of a source response is read.
const MaxPageBytes = 10 << 20

// StatusError is returned when the source answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status: %s", err.Status)
}

type Client struct {
	httpClient   *http.Client
	logger       zerolog.Logger
	maxBodyBytes int64
}

func New(httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, logger: logger, maxBodyBytes: MaxPageBytes}
}

// DecodeJSON decodes exactly one JSON value from r into v. Anything but
// whitespace after the value is an error.
func DecodeJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// DecodePage decodes a single page document from r.
func DecodePage[T any](r io.Reader) (page domain.Page[T], err error) {
	if err = DecodeJSON(r, &page); err != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}
	return
}

func FetchPage[T any](ctx context.Context, c *Client, source domain.URL) (page domain.Page[T], err error) {
	if !source.IsHTTP() {
		err = fmt.Errorf("%w: %q", ErrUnsupportedSource, source.String())
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), nil)
	if err != nil {
		err = fmt.Errorf("failed to build request: %w", err)
		return
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to fetch page: %w", err)
		return
	}
	defer res.Body.Close()

	log := c.logger.With().Str("source", source.String()).Int("status", res.StatusCode).Logger()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Warn().Msg("page source returned an error status")
		err = &StatusError{StatusCode: res.StatusCode, Status: res.Status}
		return
	}

	// A body cut off at the limit fails to decode and is reported as malformed.
	page, err = DecodePage[T](io.LimitReader(res.Body, c.maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("page source returned a malformed document")
		return
	}
	log.Debug().Int("items", len(page.List)).Msg("fetched page")
	return
}
