// Package kv defines the key-value persistence capability used by the
// storefront stores. Values are JSON documents; list values are JSON arrays
// that grow through Append.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Namespace groups keys of the same kind.
type Namespace string

const (
	// NamespaceSession holds the logged-in username. It is not user scoped.
	NamespaceSession Namespace = "session"
	// NamespaceFavorites holds a user's favorite product ids.
	NamespaceFavorites Namespace = "favorites"
	// NamespaceOrders holds a user's order history.
	NamespaceOrders Namespace = "orders"
	// NamespaceCatalog holds an imported catalog snapshot.
	NamespaceCatalog Namespace = "catalog"
)

// Key identifies a stored value. Username is empty for global keys.
type Key struct {
	Namespace Namespace
	Username  string
}

// SessionKey is the key of the persisted session.
func SessionKey() Key { return Key{Namespace: NamespaceSession} }

// FavoritesKey is the key of username's favorites.
func FavoritesKey(username string) Key {
	return Key{Namespace: NamespaceFavorites, Username: username}
}

// OrdersKey is the key of username's order history.
func OrdersKey(username string) Key {
	return Key{Namespace: NamespaceOrders, Username: username}
}

// CatalogKey is the key of the imported catalog snapshot.
func CatalogKey() Key { return Key{Namespace: NamespaceCatalog} }

func (k Key) String() string {
	if k.Username == "" {
		return string(k.Namespace)
	}
	return string(k.Namespace) + "/" + k.Username
}

// Store is a key-value store of JSON documents.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	// Append adds item to the JSON array stored under key. A missing value or
	// one that is not an array is replaced by a single-element array.
	Append(ctx context.Context, key Key, item []byte) error
}
