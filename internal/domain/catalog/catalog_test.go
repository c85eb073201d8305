package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// --- Mock implementations ---

type mockSource struct {
	products []product.Product
	err      error
	calls    int
}

func (m *mockSource) Products(_ context.Context) ([]product.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

// --- Helpers ---

func newTestProduct(id int, name string) product.Product {
	return product.Product{ID: id, Name: name, Price: decimal.NewFromInt(int64(id) * 1000), Stock: 3}
}

func sneakers() []product.Product {
	return []product.Product{
		newTestProduct(1, "Nike Air Max 95 Corteiz Gutta Green"),
		newTestProduct(2, "Jordan 4 Retro Black Cat"),
		newTestProduct(3, "adidas Yeezy Desert BootOil"),
		newTestProduct(4, "Nike Air Max Plus Lisboa"),
		newTestProduct(5, "Nike Shox R4"),
		newTestProduct(6, "NOCTA x Nike Hot Step 2"),
	}
}

func newLoadedStore(t *testing.T, products []product.Product) (*Store, *mockSource) {
	t.Helper()
	src := &mockSource{products: products}
	s, err := New(src, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	return s, src
}

func ids(products []product.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// --- Tests ---

func TestLoad(t *testing.T) {
	s, _ := newLoadedStore(t, sneakers())

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids(s.Products()))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids(s.Filtered()))

	status := s.Status()
	assert.NoError(t, status.Err)
	assert.Equal(t, 6, status.Count)
	assert.False(t, status.At.IsZero())
}

func TestLoad_FailureKeepsPreviousList(t *testing.T) {
	s, src := newLoadedStore(t, sneakers())
	s.SetFilter("jordan")

	src.err = errors.New("connection refused")
	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Len(t, s.Products(), 6)
	assert.Equal(t, []int{2}, ids(s.Filtered()))
	assert.Equal(t, err, s.Status().Err)
	assert.Equal(t, 2, src.calls, "no retry")
}

func TestLoad_FailureOnEmptyStore(t *testing.T) {
	s, err := New(&mockSource{err: errors.New("timeout")}, Options{})
	require.NoError(t, err)

	require.Error(t, s.Load(context.Background()))
	assert.Empty(t, s.Products())
	assert.Empty(t, s.Filtered())
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	products := append(sneakers(), newTestProduct(2, "Impostor"))
	s, _ := newLoadedStore(t, products)

	assert.Len(t, s.Products(), 6)
	p, err := s.SelectByID(2)
	require.NoError(t, err)
	assert.Equal(t, "Jordan 4 Retro Black Cat", p.Name)
	assert.Equal(t, 1, s.Status().Duplicates)
}

func TestSetFilter(t *testing.T) {
	s, _ := newLoadedStore(t, sneakers())

	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{1, 2, 3, 4, 5, 6}},
		{"nike", []int{1, 4, 5, 6}},
		{"NIKE", []int{1, 4, 5, 6}},
		{"air max", []int{1, 4}},
		{"yEEzY", []int{3}},
		{"puma", nil},
		{" ", []int{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s.SetFilter(tt.query)
			assert.Equal(t, tt.query, s.Query())
			got := s.Filtered()
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSetFilter_MatchesExactlyContainingSubset(t *testing.T) {
	s, _ := newLoadedStore(t, sneakers())

	for _, q := range []string{"a", "o", "Re", "x", "4", "green"} {
		s.SetFilter(q)
		got := map[int]bool{}
		for _, p := range s.Filtered() {
			got[p.ID] = true
		}
		for _, p := range s.Products() {
			want := strings.Contains(strings.ToLower(p.Name), strings.ToLower(q))
			assert.Equal(t, want, got[p.ID], "query %q product %q", q, p.Name)
		}
	}
}

func TestFilter_SurvivesReload(t *testing.T) {
	s, src := newLoadedStore(t, sneakers())
	s.SetFilter("shox")

	src.products = append(sneakers(), newTestProduct(7, "Nike Shox TL"))
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []int{5, 7}, ids(s.Filtered()))
}

func TestSelectByID(t *testing.T) {
	s, _ := newLoadedStore(t, sneakers())

	p, err := s.SelectByID(5)
	require.NoError(t, err)
	assert.Equal(t, "Nike Shox R4", p.Name)

	_, err = s.SelectByID(42)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestSelect(t *testing.T) {
	s, src := newLoadedStore(t, sneakers())

	_, ok := s.Selected()
	assert.False(t, ok)

	_, err := s.Select(42)
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = s.Select(3)
	require.NoError(t, err)
	p, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, 3, p.ID)

	// A reload that drops the product clears the selection.
	src.products = sneakers()[:2]
	require.NoError(t, s.Load(context.Background()))
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestReads_DoNotShareSlices(t *testing.T) {
	products := sneakers()
	products[0].Sizes = []int{40, 41}
	products[0].Reviews = []product.Review{{Author: "ana", Rating: 5}}
	s, _ := newLoadedStore(t, products)

	products[0].Sizes[0] = 1
	listed := s.Products()
	listed[0].Sizes[0] = 2
	listed[0].Reviews[0].Author = "mallory"
	filtered := s.Filtered()
	filtered[0].Sizes[1] = 3
	byID, err := s.SelectByID(1)
	require.NoError(t, err)
	byID.Sizes[0] = 4

	p, err := s.Select(1)
	require.NoError(t, err)
	assert.Equal(t, []int{40, 41}, p.Sizes)
	assert.Equal(t, "ana", p.Reviews[0].Author)
	p.Sizes[0] = 5

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, []int{40, 41}, selected.Sizes)
}
