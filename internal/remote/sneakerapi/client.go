// Package sneakerapi is a client for the sneaker catalog backend.
package sneakerapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// DefaultBaseURL is the public sneaker backend.
const DefaultBaseURL = "https://backend-sneakerstore-1.onrender.com/"

const maxBodySize = 8 << 20

var _ product.Source = (*Client)(nil)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode)
}

// Options configures a Client. Zero values use global telemetry providers
// and no logging.
type Options struct {
	Timeout        time.Duration
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Client fetches sneaker records. There is no retry.
type Client struct {
	base *url.URL
	http *http.Client
	lg   *zap.Logger
}

// NewClient returns a Client for baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	var otelOpts []otelhttp.Option
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelOpts...),
		},
		lg: opts.Logger,
	}, nil
}

// List returns every sneaker record.
func (c *Client) List(ctx context.Context) ([]Sneaker, error) {
	var out []Sneaker
	err := c.get(ctx, "api/sneakers", func(d *jx.Decoder) error {
		var err error
		out, err = DecodeSneakers(d)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list sneakers")
	}
	return out, nil
}

// Products fetches and maps the full catalog.
func (c *Client) Products(ctx context.Context) ([]product.Product, error) {
	records, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	c.lg.Debug("Fetched sneakers", zap.Int("count", len(records)))
	return ToProducts(records), nil
}

func (c *Client) get(ctx context.Context, path string, decode func(d *jx.Decoder) error) error {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	return decode(jx.DecodeBytes(body))
}
