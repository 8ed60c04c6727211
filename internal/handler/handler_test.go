package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/proshop/storefront/internal/auth"
	"github.com/proshop/storefront/internal/domain/order"
	"github.com/proshop/storefront/internal/domain/product"
	"github.com/proshop/storefront/internal/domain/user"
)

// --- In-memory fakes ---

type fakeProductRepo struct {
	byID map[string]product.Product
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeOrderRepo struct {
	byID map[string]*order.Order
	seq  []string
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	cp := *o
	f.byID[o.ID] = &cp
	f.seq = append(f.seq, o.ID)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	if _, ok := f.byID[o.ID]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	f.byID[o.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for i := len(f.seq) - 1; i >= 0; i-- {
		if o := f.byID[f.seq[i]]; o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListAll(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for i := len(f.seq) - 1; i >= 0; i-- {
		out = append(out, *f.byID[f.seq[i]])
	}
	return out, nil
}

type fakeUserRepo struct {
	byEmail map[string]*user.User
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

// --- Test fixture ---

type fixture struct {
	srv        *httptest.Server
	tokens     *auth.Tokens
	orders     *fakeOrderRepo
	userToken  string
	adminToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &fakeProductRepo{byID: map[string]product.Product{
		"p1": {ID: "p1", Name: "Airpods", Image: "/images/airpods.jpg", Price: decimal.RequireFromString("19.99")},
		"p2": {ID: "p2", Name: "Camera", Image: "/images/camera.jpg", Price: decimal.RequireFromString("150.00")},
	}}
	orders := &fakeOrderRepo{byID: make(map[string]*order.Order)}

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	regular := &user.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: string(hash)}
	admin := &user.User{ID: "u2", Name: "Root", Email: "root@example.com", PasswordHash: string(hash), IsAdmin: true}
	users := &fakeUserRepo{byEmail: map[string]*user.User{
		regular.Email: regular,
		admin.Email:   admin,
	}}

	tokens := auth.NewTokens([]byte("test-secret"))
	userToken, err := tokens.Issue(regular)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(admin)
	require.NoError(t, err)

	h := New(Config{}, order.NewService(products, orders), products, users, tokens)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &fixture{
		srv:        srv,
		tokens:     tokens,
		orders:     orders,
		userToken:  userToken,
		adminToken: adminToken,
	}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
