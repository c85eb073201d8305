// Package catalog holds the current product list and its search-filtered view.
package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// LoadStatus describes the outcome of the most recent Load.
type LoadStatus struct {
	At         time.Time
	Count      int
	Duplicates int
	Err        error
}

// state is swapped atomically on every mutation.
type state struct {
	products []product.Product
	query    string
	filtered []product.Product
	selected *product.Product
	status   LoadStatus
}

// Options configures a Store. Zero values fall back to no-op implementations.
type Options struct {
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
}

// Store is the catalog store.
type Store struct {
	source product.Source
	lg     *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	loads    metric.Int64Counter
	products metric.Int64Gauge

	// mu serializes writers. Readers only load st.
	mu sync.Mutex
	st atomic.Pointer[state]
}

// New returns an empty Store that loads from source.
func New(source product.Source, opts Options) (*Store, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("sneakerstore/catalog")
	loads, err := meter.Int64Counter("catalog.loads",
		metric.WithDescription("Catalog load attempts by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create loads counter")
	}
	products, err := meter.Int64Gauge("catalog.products",
		metric.WithDescription("Products in the current catalog snapshot"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create products gauge")
	}

	s := &Store{
		source:   source,
		lg:       opts.Logger,
		tracer:   opts.TracerProvider.Tracer("sneakerstore/catalog"),
		now:      time.Now,
		loads:    loads,
		products: products,
	}
	s.st.Store(&state{})
	return s, nil
}

// Load replaces the product list from the source. On failure the previous
// list is kept and the error is returned and recorded in Status.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Load")
	defer span.End()

	fetched, err := s.source.Products(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.st.Load()
	next := *cur
	if err != nil {
		err = errors.Wrap(err, "load catalog")
		next.status = LoadStatus{At: s.now(), Count: len(cur.products), Err: err}
		s.st.Store(&next)

		s.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.lg.Warn("Catalog load failed, keeping previous list",
			zap.Error(err),
			zap.Int("kept", len(cur.products)),
		)
		return err
	}

	unique, dups := dedupe(fetched)
	if len(dups) > 0 {
		s.lg.Warn("Dropped products with duplicate ids", zap.Ints("ids", dups))
	}

	next.products = unique
	next.filtered = filter(unique, cur.query)
	next.selected = nil
	if cur.selected != nil {
		if i := indexOf(unique, cur.selected.ID); i >= 0 {
			next.selected = &unique[i]
		}
	}
	next.status = LoadStatus{At: s.now(), Count: len(unique), Duplicates: len(dups)}
	s.st.Store(&next)

	s.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	s.products.Record(ctx, int64(len(unique)))
	span.SetAttributes(attribute.Int("catalog.count", len(unique)))
	s.lg.Info("Catalog loaded", zap.Int("count", len(unique)))
	return nil
}

// Status returns the outcome of the most recent Load.
func (s *Store) Status() LoadStatus {
	return s.st.Load().status
}

// Products returns a deep copy of the full product list in load order.
func (s *Store) Products() []product.Product {
	return product.CloneList(s.st.Load().products)
}

// SetFilter sets the search query and recomputes the filtered view.
func (s *Store) SetFilter(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.st.Load()
	next := *cur
	next.query = query
	next.filtered = filter(cur.products, query)
	s.st.Store(&next)
}

// Query returns the current search query.
func (s *Store) Query() string {
	return s.st.Load().query
}

// Filtered returns the products whose name contains the query, ignoring
// case. An empty query yields the full list.
func (s *Store) Filtered() []product.Product {
	return product.CloneList(s.st.Load().filtered)
}

// SelectByID returns the first product with id.
func (s *Store) SelectByID(id int) (product.Product, error) {
	products := s.st.Load().products
	i := indexOf(products, id)
	if i < 0 {
		return product.Product{}, product.ErrNotFound
	}
	return products[i].Clone(), nil
}

// Select marks the product with id as selected.
func (s *Store) Select(id int) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.st.Load()
	i := indexOf(cur.products, id)
	if i < 0 {
		return product.Product{}, product.ErrNotFound
	}
	next := *cur
	next.selected = &cur.products[i]
	s.st.Store(&next)
	return cur.products[i].Clone(), nil
}

// Selected returns the selected product, if any.
func (s *Store) Selected() (product.Product, bool) {
	p := s.st.Load().selected
	if p == nil {
		return product.Product{}, false
	}
	return p.Clone(), true
}

func filter(products []product.Product, query string) []product.Product {
	if query == "" {
		return products
	}
	q := strings.ToLower(query)
	var out []product.Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

// dedupe keeps the first product per id and reports the dropped ids.
func dedupe(products []product.Product) (unique []product.Product, dups []int) {
	seen := make(map[int]struct{}, len(products))
	unique = make([]product.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			dups = append(dups, p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p.Clone())
	}
	return unique, dups
}

func indexOf(products []product.Product, id int) int {
	return slices.IndexFunc(products, func(p product.Product) bool { return p.ID == id })
}
