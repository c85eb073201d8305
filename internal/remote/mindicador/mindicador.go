// Package mindicador fetches Chilean economic indicators from mindicador.cl.
package mindicador

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// DefaultURL is the indicator endpoint.
const DefaultURL = "https://mindicador.cl/api"

// ErrNoDollar is returned when the response carries no dollar value.
var ErrNoDollar = errors.New("dollar indicator missing")

// Client reads the observed dollar rate.
type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a Client for url.
func NewClient(url string, timeout time.Duration, tp trace.TracerProvider) *Client {
	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	return &Client{
		url: url,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		},
	}
}

// DollarRate returns the CLP value of one US dollar.
func (c *Client) DollarRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get indicators")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.New("get indicators: status " + strconv.Itoa(resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "read body")
	}
	return parseDollar(body)
}

// parseDollar extracts dolar.valor from an indicators document.
func parseDollar(body []byte) (decimal.Decimal, error) {
	var (
		rate  decimal.Decimal
		found bool
	)
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "dolar" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "valor" {
				return d.Skip()
			}
			n, err := d.Num()
			if err != nil {
				return err
			}
			rate, err = decimal.NewFromString(n.String())
			found = err == nil
			return err
		})
	})
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "decode indicators")
	}
	if !found || !rate.IsPositive() {
		return decimal.Zero, ErrNoDollar
	}
	return rate, nil
}
