package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
	"github.com/Unknumb/SneakerStoreMobile/internal/storage/memory"
	"github.com/Unknumb/SneakerStoreMobile/internal/validate"
	"github.com/Unknumb/SneakerStoreMobile/pkg/ratelimit"
)

// --- Mock implementations ---

// gatedKV blocks every write until gate is closed.
type gatedKV struct {
	*memory.KVStore
	gate     chan struct{}
	writeErr error
}

func (g *gatedKV) wait() {
	if g.gate != nil {
		<-g.gate
	}
}

func (g *gatedKV) Set(ctx context.Context, key kv.Key, value []byte) error {
	g.wait()
	if g.writeErr != nil {
		return g.writeErr
	}
	return g.KVStore.Set(ctx, key, value)
}

func (g *gatedKV) Delete(ctx context.Context, key kv.Key) error {
	g.wait()
	if g.writeErr != nil {
		return g.writeErr
	}
	return g.KVStore.Delete(ctx, key)
}

func (g *gatedKV) Append(ctx context.Context, key kv.Key, item []byte) error {
	g.wait()
	if g.writeErr != nil {
		return g.writeErr
	}
	return g.KVStore.Append(ctx, key, item)
}

// --- Helpers ---

type fixture struct {
	store *Store
	kv    *gatedKV
	users *memory.UserRepository
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	users := memory.NewUserRepository()
	for _, name := range []string{"alice", "bob"} {
		u, err := user.New(name, "correct")
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), u))
	}

	store := &gatedKV{KVStore: memory.NewKVStore()}
	s := New(store, users, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return &fixture{store: s, kv: store, users: users}
}

func (f *fixture) login(t *testing.T, username string) {
	t.Helper()
	require.NoError(t, f.store.Login(context.Background(), username, "correct"))
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Flush(ctx))
}

func newTestOrder(id string) order.Order {
	return order.Order{
		ID:              id,
		Items:           []product.Product{{ID: 1, Name: "Nike Shox R4", Price: decimal.NewFromInt(129990)}},
		ShippingAddress: "Calle 1, Biobío",
		Total:           decimal.NewFromInt(133490),
		OrderDate:       "03/04/2026",
	}
}

func orderIDs(orders []order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

// --- Tests ---

func TestLogin(t *testing.T) {
	f := newFixture(t, Options{})

	assert.False(t, f.store.State().LoggedIn())
	f.login(t, "alice")

	st := f.store.State()
	assert.True(t, st.LoggedIn())
	assert.Equal(t, "alice", st.Username)
	assert.Empty(t, st.Favorites())
	assert.Empty(t, st.Orders())

	f.flush(t)
	data, err := f.kv.Get(context.Background(), kv.SessionKey())
	require.NoError(t, err)
	assert.Equal(t, `"alice"`, string(data))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")
	_, err := f.store.ToggleFavorite(5)
	require.NoError(t, err)

	err = f.store.Login(context.Background(), "bob", "wrong")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Equal(t, "invalid username or password", err.Error())

	st := f.store.State()
	assert.Equal(t, "alice", st.Username, "state untouched")
	assert.Equal(t, []int{5}, st.Favorites())
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixture(t, Options{Limiter: ratelimit.New(ratelimit.Config{Max: 2, Window: time.Minute})})
	ctx := context.Background()

	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.ErrorIs(t, f.store.Login(ctx, "alice", "correct"), ErrTooManyAttempts)
	assert.False(t, f.store.State().LoggedIn())

	// Other usernames are unaffected.
	require.NoError(t, f.store.Login(ctx, "bob", "correct"))
}

func TestLogin_ThrottleIgnoresPadding(t *testing.T) {
	f := newFixture(t, Options{Limiter: ratelimit.New(ratelimit.Config{Max: 2, Window: time.Minute})})
	ctx := context.Background()

	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.ErrorIs(t, f.store.Login(ctx, " alice", "nope"), user.ErrInvalidCredentials)
	for _, name := range []string{"alice ", "alice  ", "\talice\n"} {
		require.ErrorIs(t, f.store.Login(ctx, name, "nope"), ErrTooManyAttempts, "%q", name)
	}
	require.ErrorIs(t, f.store.Login(ctx, "alice   ", "correct"), ErrTooManyAttempts)
	assert.False(t, f.store.State().LoggedIn())
}

func TestLogin_PaddedSuccessResetsThrottle(t *testing.T) {
	f := newFixture(t, Options{Limiter: ratelimit.New(ratelimit.Config{Max: 2, Window: time.Minute})})
	ctx := context.Background()

	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.NoError(t, f.store.Login(ctx, "  alice ", "correct"))
	assert.Equal(t, "alice", f.store.State().Username)

	f.store.Logout()
	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.ErrorIs(t, f.store.Login(ctx, "alice", "nope"), user.ErrInvalidCredentials)
	require.ErrorIs(t, f.store.Login(ctx, "alice", "correct"), ErrTooManyAttempts)
}

func TestFavorites_RestoredAcrossLogout(t *testing.T) {
	f := newFixture(t, Options{})

	f.login(t, "alice")
	added, err := f.store.ToggleFavorite(5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []int{5}, f.store.State().Favorites())

	f.store.Logout()
	assert.Empty(t, f.store.State().Favorites())
	assert.False(t, f.store.State().LoggedIn())

	f.login(t, "alice")
	assert.Equal(t, []int{5}, f.store.State().Favorites())
}

func TestLogout_ImmediateDespitePendingWrites(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")
	f.flush(t)

	f.kv.gate = make(chan struct{})
	_, err := f.store.ToggleFavorite(5)
	require.NoError(t, err)
	require.NoError(t, f.store.AddOrder(context.Background(), newTestOrder("o-1")))

	f.store.Logout()

	st := f.store.State()
	assert.False(t, st.LoggedIn())
	assert.Empty(t, st.Favorites())
	assert.Empty(t, st.Orders())
	assert.Positive(t, f.store.Pending())

	close(f.kv.gate)
	f.login(t, "alice")

	st = f.store.State()
	assert.Equal(t, []int{5}, st.Favorites(), "login waits for queued writes")
	assert.Equal(t, []string{"o-1"}, orderIDs(st.Orders()))
}

func TestToggleFavorite_WithoutSession(t *testing.T) {
	f := newFixture(t, Options{})

	for range 3 {
		added, err := f.store.ToggleFavorite(5)
		require.ErrorIs(t, err, user.ErrLoginRequired)
		assert.False(t, added)
		assert.Empty(t, f.store.State().Favorites())

		select {
		case <-f.store.LoginPrompts():
		default:
			t.Fatal("expected a login prompt")
		}
	}
	assert.Zero(t, f.store.Pending())
}

func TestToggleFavorite_Flips(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")

	for _, id := range []int{7, 2, 5} {
		_, err := f.store.ToggleFavorite(id)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 5, 7}, f.store.State().Favorites())
	assert.True(t, f.store.State().IsFavorite(5))

	added, err := f.store.ToggleFavorite(5)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []int{2, 7}, f.store.State().Favorites())

	f.flush(t)
	data, err := f.kv.Get(context.Background(), kv.FavoritesKey("alice"))
	require.NoError(t, err)
	assert.JSONEq(t, `[2,7]`, string(data))
}

func TestFavorites_IsolatedPerUser(t *testing.T) {
	f := newFixture(t, Options{})

	f.login(t, "alice")
	_, err := f.store.ToggleFavorite(1)
	require.NoError(t, err)
	f.store.Logout()

	f.login(t, "bob")
	assert.Empty(t, f.store.State().Favorites())
	_, err = f.store.ToggleFavorite(2)
	require.NoError(t, err)

	f.login(t, "alice")
	assert.Equal(t, []int{1}, f.store.State().Favorites())
}

func TestAddOrder(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	require.ErrorIs(t, f.store.AddOrder(ctx, newTestOrder("guest")), user.ErrLoginRequired)

	f.login(t, "alice")
	require.NoError(t, f.store.AddOrder(ctx, newTestOrder("o-1")))
	require.NoError(t, f.store.AddOrder(ctx, newTestOrder("o-2")))
	assert.Equal(t, []string{"o-1", "o-2"}, orderIDs(f.store.State().Orders()))

	f.store.Logout()
	f.login(t, "alice")

	orders := f.store.State().Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "o-2", orders[1].ID)
	assert.True(t, decimal.NewFromInt(133490).Equal(orders[1].Total))
}

func TestLogin_CorruptDataTreatedAsEmpty(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, kv.FavoritesKey("alice"), []byte(`{not json`)))
	require.NoError(t, f.kv.Set(ctx, kv.OrdersKey("alice"), []byte(`[{"id":42}]`)))

	f.login(t, "alice")

	assert.Empty(t, f.store.State().Favorites())
	assert.Empty(t, f.store.State().Orders())
}

func TestLogin_LegacyStringFavorites(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.kv.Set(context.Background(), kv.FavoritesKey("alice"), []byte(`["5","3","5"]`)))

	f.login(t, "alice")
	assert.Equal(t, []int{3, 5}, f.store.State().Favorites())
}

func TestRestore(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")
	_, err := f.store.ToggleFavorite(4)
	require.NoError(t, err)
	f.flush(t)

	// A new store over the same storage picks up the session.
	s := New(f.kv, f.users, Options{})
	defer s.Close(context.Background())

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", s.State().Username)
	assert.Equal(t, []int{4}, s.State().Favorites())
}

func TestRestore_NoSession(t *testing.T) {
	f := newFixture(t, Options{})

	ok, err := f.store.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	f.login(t, "alice")
	f.store.Logout()
	f.flush(t)

	ok, err = f.store.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "logout removes the persisted session")
}

func TestRegister(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.store.Register(ctx, user.Registration{Username: "carol", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.False(t, f.store.State().LoggedIn(), "register does not log in")
	require.NoError(t, f.store.Login(ctx, "carol", "secret1"))

	_, err = f.store.Register(ctx, user.Registration{Username: "alice", Password: "secret1", ConfirmPassword: "secret1"})
	require.ErrorIs(t, err, user.ErrUserExists)

	_, err = f.store.Register(ctx, user.Registration{Username: "d d", Password: "x", ConfirmPassword: "y"})
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
}

func TestWriteFailuresAreCounted(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")
	f.flush(t)

	f.kv.writeErr = errors.New("disk full")
	_, err := f.store.ToggleFavorite(1)
	require.NoError(t, err, "in-memory update does not wait for persistence")
	f.flush(t)

	assert.Equal(t, int64(1), f.store.FailedWrites())
	assert.Equal(t, []int{1}, f.store.State().Favorites())
}

func TestClose_DrainsAndDropsLateWrites(t *testing.T) {
	f := newFixture(t, Options{})
	f.login(t, "alice")
	_, err := f.store.ToggleFavorite(9)
	require.NoError(t, err)

	require.NoError(t, f.store.Close(context.Background()))
	assert.Zero(t, f.store.Pending())

	data, err := f.kv.Get(context.Background(), kv.FavoritesKey("alice"))
	require.NoError(t, err)
	assert.JSONEq(t, `[9]`, string(data))

	_, err = f.store.ToggleFavorite(10)
	require.NoError(t, err)
	assert.Zero(t, f.store.Pending())
	require.NoError(t, f.store.Flush(context.Background()))
}
