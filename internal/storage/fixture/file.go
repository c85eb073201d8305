package fixture

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
)

// ReadFile reads a JSON array of products from path. Paths ending in ".gz"
// are decompressed.
func ReadFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	products, err := product.DecodeList(jx.Decode(r, 64<<10))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}

// File returns a source that re-reads path on every load.
func File(path string) product.Source {
	return product.SourceFunc(func(context.Context) ([]product.Product, error) {
		return ReadFile(path)
	})
}

// Stored returns a source reading the catalog snapshot saved under
// kv.CatalogKey.
func Stored(store kv.Store) product.Source {
	return product.SourceFunc(func(ctx context.Context) ([]product.Product, error) {
		data, err := store.Get(ctx, kv.CatalogKey())
		if err != nil {
			return nil, errors.Wrap(err, "read stored catalog")
		}
		products, err := product.DecodeList(jx.DecodeBytes(data))
		if err != nil {
			return nil, errors.Wrap(err, "decode stored catalog")
		}
		return products, nil
	})
}

// Save stores products under kv.CatalogKey for Stored to read.
func Save(ctx context.Context, store kv.Store, products []product.Product) error {
	e := &jx.Encoder{}
	product.EncodeList(e, products)
	if err := store.Set(ctx, kv.CatalogKey(), e.Bytes()); err != nil {
		return errors.Wrap(err, "save catalog")
	}
	return nil
}
