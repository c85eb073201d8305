// Package session tracks the logged-in user together with the user's
// favorites and order history.
//
// In-memory state is replaced atomically and updated before persistence.
// Writes to the key-value store are queued to a single background writer and
// applied in order. Login and Restore drain that queue before reading, so a
// user never sees data older than their own last change.
package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
	"github.com/Unknumb/SneakerStoreMobile/pkg/ratelimit"
)

// ErrTooManyAttempts is returned by Login when a username is throttled.
var ErrTooManyAttempts = errors.New("too many login attempts")

const writeTimeout = 10 * time.Second

var _ order.History = (*Store)(nil)

// State is an immutable view of the session.
type State struct {
	Username  string
	favorites []int
	orders    []order.Order
}

// LoggedIn reports whether a user is logged in.
func (s *State) LoggedIn() bool { return s.Username != "" }

// Favorites returns the favorite product ids in ascending order.
func (s *State) Favorites() []int { return slices.Clone(s.favorites) }

// IsFavorite reports whether id is a favorite.
func (s *State) IsFavorite(id int) bool {
	_, ok := slices.BinarySearch(s.favorites, id)
	return ok
}

// Orders returns the order history, oldest first.
func (s *State) Orders() []order.Order { return slices.Clone(s.orders) }

// Options configures a Store.
type Options struct {
	Logger *zap.Logger
	// Limiter throttles login attempts per username. Nil disables throttling.
	Limiter *ratelimit.Limiter
	// QueueSize bounds the number of queued writes before callers block.
	QueueSize int
}

type job struct {
	name    string
	key     kv.Key
	write   func(ctx context.Context) error
	flushed chan struct{}
}

// Store is the session store.
type Store struct {
	kv      kv.Store
	users   user.Repository
	limiter *ratelimit.Limiter
	lg      *zap.Logger
	now     func() time.Time

	// mu serializes writers and guards closed. Readers only load st.
	mu     sync.Mutex
	st     atomic.Pointer[State]
	closed bool

	prompts chan struct{}
	queue   chan job
	pending atomic.Int64
	failed  atomic.Int64
	done    chan struct{}
}

// New creates a logged-out Store and starts its background writer. Call
// Close to drain and stop the writer.
func New(store kv.Store, users user.Repository, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	s := &Store{
		kv:      store,
		users:   users,
		limiter: opts.Limiter,
		lg:      opts.Logger,
		now:     time.Now,
		prompts: make(chan struct{}, 1),
		queue:   make(chan job, opts.QueueSize),
		done:    make(chan struct{}),
	}
	s.st.Store(&State{})
	go s.runWriter()
	return s
}

// State returns the current session view.
func (s *Store) State() *State { return s.st.Load() }

// Username returns the logged-in username, or "" when logged out.
func (s *Store) Username() string { return s.st.Load().Username }

// LoginPrompts delivers a value whenever an operation needed a logged-in
// user and there was none. Signals coalesce while unread.
func (s *Store) LoginPrompts() <-chan struct{} { return s.prompts }

// Pending returns the number of queued writes not yet applied.
func (s *Store) Pending() int64 { return s.pending.Load() }

// FailedWrites returns the number of writes that returned an error.
func (s *Store) FailedWrites() int64 { return s.failed.Load() }

// Register creates a new user. It does not log them in.
func (s *Store) Register(ctx context.Context, r user.Registration) (*user.User, error) {
	u, err := user.Register(ctx, s.users, r)
	if err != nil {
		return nil, err
	}
	s.lg.Info("User registered", zap.String("username", u.Username))
	return u, nil
}

// Login authenticates the user, persists the session and loads the user's
// favorites and orders. On failure the session is unchanged.
func (s *Store) Login(ctx context.Context, username, password string) error {
	username = user.NormalizeUsername(username)
	if s.limiter != nil && !s.limiter.Allow(username, s.now()).Allowed {
		return ErrTooManyAttempts
	}
	u, err := user.Authenticate(ctx, s.users, username, password)
	if err != nil {
		return err
	}
	if s.limiter != nil {
		s.limiter.Reset(username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activateLocked(ctx, u.Username); err != nil {
		return err
	}
	s.enqueueLocked("save session", kv.SessionKey(), func(ctx context.Context) error {
		return s.kv.Set(ctx, kv.SessionKey(), encodeUsername(u.Username))
	})
	s.lg.Info("User logged in", zap.String("username", u.Username))
	return nil
}

// Restore reloads a persisted session. It reports whether a user was
// restored.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(ctx); err != nil {
		return false, err
	}
	data, err := s.kv.Get(ctx, kv.SessionKey())
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read session")
	}
	username, err := decodeUsername(data)
	if err != nil || username == "" {
		s.lg.Warn("Ignoring unreadable session", zap.Error(err))
		return false, nil
	}
	if err := s.activateLocked(ctx, username); err != nil {
		return false, err
	}
	s.lg.Info("Session restored", zap.String("username", username))
	return true, nil
}

// activateLocked drains pending writes, loads the user's collections and
// swaps in the logged-in state.
func (s *Store) activateLocked(ctx context.Context, username string) error {
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.st.Store(&State{
		Username:  username,
		favorites: s.loadFavorites(ctx, username),
		orders:    s.loadOrders(ctx, username),
	})
	return nil
}

// Logout clears the in-memory session immediately, then removes the
// persisted session in the background. Stored favorites and orders are kept.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.st.Load()
	s.st.Store(&State{})
	if !prev.LoggedIn() {
		return
	}
	s.enqueueLocked("clear session", kv.SessionKey(), func(ctx context.Context) error {
		return s.kv.Delete(ctx, kv.SessionKey())
	})
	s.lg.Info("User logged out", zap.String("username", prev.Username))
}

// ToggleFavorite flips id in the user's favorites and reports whether it is
// now a favorite. Without a session it signals LoginPrompts and returns
// user.ErrLoginRequired.
func (s *Store) ToggleFavorite(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.st.Load()
	if !cur.LoggedIn() {
		s.promptLogin()
		return false, user.ErrLoginRequired
	}

	favorites := slices.Clone(cur.favorites)
	i, found := slices.BinarySearch(favorites, id)
	if found {
		favorites = slices.Delete(favorites, i, i+1)
	} else {
		favorites = slices.Insert(favorites, i, id)
	}
	s.st.Store(&State{Username: cur.Username, favorites: favorites, orders: cur.orders})

	key := kv.FavoritesKey(cur.Username)
	data := encodeFavorites(favorites)
	s.enqueueLocked("save favorites", key, func(ctx context.Context) error {
		return s.kv.Set(ctx, key, data)
	})
	return !found, nil
}

// AddOrder appends o to the user's order history.
func (s *Store) AddOrder(_ context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.st.Load()
	if !cur.LoggedIn() {
		return user.ErrLoginRequired
	}

	orders := append(slices.Clone(cur.orders), o)
	s.st.Store(&State{Username: cur.Username, favorites: cur.favorites, orders: orders})

	key := kv.OrdersKey(cur.Username)
	data := order.Marshal(o)
	s.enqueueLocked("append order", key, func(ctx context.Context) error {
		return s.kv.Append(ctx, key, data)
	})
	return nil
}

// Flush waits until every write queued before the call has been applied.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	marker := make(chan struct{})
	s.queue <- job{flushed: marker}
	s.mu.Unlock()

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued writes and stops the writer.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) flushLocked(ctx context.Context) error {
	if s.closed {
		return nil
	}
	marker := make(chan struct{})
	select {
	case s.queue <- job{flushed: marker}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "flush writes")
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "flush writes")
	}
}

func (s *Store) enqueueLocked(name string, key kv.Key, write func(ctx context.Context) error) {
	if s.closed {
		s.lg.Warn("Dropping write after close", zap.String("write", name), zap.Stringer("key", key))
		return
	}
	s.pending.Add(1)
	s.queue <- job{name: name, key: key, write: write}
}

func (s *Store) runWriter() {
	defer close(s.done)
	for j := range s.queue {
		if j.flushed != nil {
			close(j.flushed)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := j.write(ctx); err != nil {
			s.failed.Add(1)
			s.lg.Error("Persist failed",
				zap.String("write", j.name),
				zap.Stringer("key", j.key),
				zap.Error(err),
			)
		}
		cancel()
		s.pending.Add(-1)
	}
}

func (s *Store) promptLogin() {
	select {
	case s.prompts <- struct{}{}:
	default:
	}
}

func (s *Store) loadFavorites(ctx context.Context, username string) []int {
	data, err := s.kv.Get(ctx, kv.FavoritesKey(username))
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err == nil {
		var favorites []int
		favorites, err = decodeFavorites(data)
		if err == nil {
			return favorites
		}
	}
	s.lg.Warn("Treating favorites as empty",
		zap.String("username", username),
		zap.Error(err),
	)
	return nil
}

func (s *Store) loadOrders(ctx context.Context, username string) []order.Order {
	data, err := s.kv.Get(ctx, kv.OrdersKey(username))
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err == nil {
		var orders []order.Order
		orders, err = order.UnmarshalList(data)
		if err == nil {
			return orders
		}
	}
	s.lg.Warn("Treating orders as empty",
		zap.String("username", username),
		zap.Error(err),
	)
	return nil
}
