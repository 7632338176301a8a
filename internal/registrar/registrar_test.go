package registrar_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"repo-sync-automation/internal/registrar"
	"repo-sync-automation/pkg/github"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Debugf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Info(ctx context.Context, arg ...any)                     {}
func (m *mockLogger) Infof(ctx context.Context, template string, arg ...any)   {}
func (m *mockLogger) Warn(ctx context.Context, arg ...any)                     {}
func (m *mockLogger) Warnf(ctx context.Context, template string, arg ...any)   {}
func (m *mockLogger) Error(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Errorf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) DPanic(ctx context.Context, arg ...any)                   {}
func (m *mockLogger) DPanicf(ctx context.Context, template string, arg ...any) {}
func (m *mockLogger) Panic(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Panicf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Fatal(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Fatalf(ctx context.Context, template string, arg ...any)  {}

// fakeProvider is an in-memory hook store with call counters.
type fakeProvider struct {
	mu      sync.Mutex
	hooks   map[int64]github.Hook
	nextID  int64
	secrets map[int64]string

	lists, creates, updates, deletes, pings int

	listErr   error
	pingErr   error
	deleteErr map[int64]error
}

func newFakeProvider(existing ...github.Hook) *fakeProvider {
	p := &fakeProvider{hooks: map[int64]github.Hook{}, secrets: map[int64]string{}, nextID: 100, deleteErr: map[int64]error{}}
	for _, h := range existing {
		p.hooks[h.ID] = h
	}
	return p
}

func (p *fakeProvider) ListHooks(ctx context.Context, owner, repo string) ([]github.Hook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists++
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]github.Hook, 0, len(p.hooks))
	for id := int64(0); id <= p.nextID; id++ {
		if h, ok := p.hooks[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (p *fakeProvider) CreateHook(ctx context.Context, owner, repo string, in github.HookInput) (github.Hook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	p.nextID++
	h := github.Hook{ID: p.nextID, Name: "web", Active: in.Active, Events: in.Events, Config: github.HookConfig{URL: in.URL}}
	p.hooks[h.ID] = h
	p.secrets[h.ID] = in.Secret
	return h, nil
}

func (p *fakeProvider) UpdateHook(ctx context.Context, owner, repo string, id int64, in github.HookInput) (github.Hook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	h, ok := p.hooks[id]
	if !ok {
		return github.Hook{}, &github.APIError{StatusCode: 404}
	}
	h.Active, h.Events, h.Config.URL = in.Active, in.Events, in.URL
	p.hooks[id] = h
	p.secrets[id] = in.Secret
	return h, nil
}

func (p *fakeProvider) DeleteHook(ctx context.Context, owner, repo string, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes++
	if err := p.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := p.hooks[id]; !ok {
		return &github.APIError{StatusCode: 404, Message: "Not Found"}
	}
	delete(p.hooks, id)
	return nil
}

func (p *fakeProvider) PingHook(ctx context.Context, owner, repo string, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return p.pingErr
}

type fakeTunnel struct {
	url string
	err error
}

func (f *fakeTunnel) PublicURL(ctx context.Context, localPort int) (string, error) {
	return f.url, f.err
}

func hook(id int64, url string) github.Hook {
	return github.Hook{ID: id, Name: "web", Active: true, Events: []string{"push"}, Config: github.HookConfig{URL: url}}
}

func newRegistrar(p registrar.Provider, tunnel registrar.Tunnel) registrar.Registrar {
	return registrar.New(p, tunnel, registrar.Options{Owner: "acme", Repo: "site", WebhookPath: "/webhook"}, &mockLogger{})
}

func TestEnsureRegisteredCreatesOnce(t *testing.T) {
	p := newFakeProvider(hook(1, "https://ci.example.com/hook"))
	tunnel := &fakeTunnel{url: "https://abc.ngrok-free.app/"}
	r := newRegistrar(p, tunnel)
	ctx := context.Background()

	reg, err := r.EnsureRegistered(ctx, 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.TargetURL != "https://abc.ngrok-free.app/webhook" || !reg.Active {
		t.Errorf("unexpected registration: %+v", reg)
	}

	again, err := r.EnsureRegistered(ctx, 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != reg.ID {
		t.Errorf("expected same registration, got %d and %d", reg.ID, again.ID)
	}
	if p.creates != 1 {
		t.Errorf("expected exactly one create, got %d", p.creates)
	}
	if p.lists != 1 {
		t.Errorf("expected cached second call without listing, got %d lists", p.lists)
	}
	if p.pings != 1 {
		t.Errorf("expected one ping, got %d", p.pings)
	}
	if _, ok := p.hooks[1]; !ok {
		t.Errorf("foreign hook must be left alone")
	}
	if p.secrets[reg.ID] != "s3cret" {
		t.Errorf("secret not sent to provider")
	}

	cur, ok := r.Current()
	if !ok || cur.ID != reg.ID {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestEnsureRegisteredMovesStaleHook(t *testing.T) {
	p := newFakeProvider(
		hook(1, "https://old-1.ngrok-free.app/webhook"),
		hook(2, "https://old-2.ngrok.io/webhook"),
		hook(3, "https://ci.example.com/webhook"),
		hook(4, "https://old-3.ngrok-free.app/other"),
	)
	r := newRegistrar(p, &fakeTunnel{url: "https://new.ngrok-free.app"})

	reg, err := r.EnsureRegistered(context.Background(), 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.ID != 1 {
		t.Errorf("expected hook 1 to be updated in place, got %d", reg.ID)
	}
	if p.creates != 0 || p.updates != 1 {
		t.Errorf("expected 0 creates and 1 update, got %d and %d", p.creates, p.updates)
	}
	if p.hooks[1].Config.URL != "https://new.ngrok-free.app/webhook" {
		t.Errorf("hook 1 not moved: %+v", p.hooks[1])
	}
	if _, ok := p.hooks[2]; ok {
		t.Errorf("duplicate tunnel hook 2 should be deleted")
	}
	for _, id := range []int64{3, 4} {
		if _, ok := p.hooks[id]; !ok {
			t.Errorf("hook %d is not ours and must be kept", id)
		}
	}
}

func TestEnsureRegisteredReusesExactMatch(t *testing.T) {
	p := newFakeProvider(
		hook(5, "https://same.ngrok.app/webhook"),
		hook(6, "https://same.ngrok.app/webhook"),
	)
	r := newRegistrar(p, &fakeTunnel{url: "https://same.ngrok.app"})

	reg, err := r.EnsureRegistered(context.Background(), 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.ID != 5 || p.creates != 0 {
		t.Errorf("expected reuse of hook 5, got %+v with %d creates", reg, p.creates)
	}
	if p.secrets[5] != "s3cret" {
		t.Errorf("expected secret refreshed on first registration")
	}
	if _, ok := p.hooks[6]; ok {
		t.Errorf("duplicate exact hook should be deleted")
	}
}

func TestEnsureRegisteredFollowsTunnelChange(t *testing.T) {
	p := newFakeProvider()
	tunnel := &fakeTunnel{url: "https://first.example.net"}
	r := registrar.New(p, tunnel, registrar.Options{Owner: "acme", Repo: "site", HostSuffixes: []string{}}, &mockLogger{})
	ctx := context.Background()

	first, err := r.EnsureRegistered(ctx, 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tunnel.url = "https://second.example.net"
	second, err := r.EnsureRegistered(ctx, 8080, "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("cached hook id should be moved, got new id %d", second.ID)
	}
	if p.creates != 1 || p.updates != 1 || len(p.hooks) != 1 {
		t.Errorf("unexpected calls: creates=%d updates=%d hooks=%d", p.creates, p.updates, len(p.hooks))
	}
}

func TestEnsureRegisteredDuplicateDeleteFailureNotFatal(t *testing.T) {
	p := newFakeProvider(
		hook(1, "https://a.ngrok-free.app/webhook"),
		hook(2, "https://b.ngrok-free.app/webhook"),
	)
	p.deleteErr[2] = errors.New("boom")
	p.pingErr = errors.New("ping failed")
	r := newRegistrar(p, &fakeTunnel{url: "https://c.ngrok-free.app"})

	if _, err := r.EnsureRegistered(context.Background(), 8080, "s3cret"); err != nil {
		t.Fatalf("cleanup and ping failures must not fail registration: %v", err)
	}
}

func TestEnsureRegisteredErrors(t *testing.T) {
	t.Run("Tunnel", func(t *testing.T) {
		r := newRegistrar(newFakeProvider(), &fakeTunnel{err: errors.New("no tunnel")})
		if _, err := r.EnsureRegistered(context.Background(), 8080, "s"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("Provider", func(t *testing.T) {
		p := newFakeProvider()
		p.listErr = &github.APIError{StatusCode: 401, Message: "Bad credentials"}
		r := newRegistrar(p, &fakeTunnel{url: "https://x.ngrok.app"})

		_, err := r.EnsureRegistered(context.Background(), 8080, "s")
		if !errors.Is(err, github.ErrProviderAPI) {
			t.Fatalf("expected provider error, got %v", err)
		}
		var apiErr *github.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsAuth() {
			t.Errorf("expected auth classification to survive wrapping")
		}
		if _, ok := r.Current(); ok {
			t.Errorf("failed registration must not be cached")
		}
	})
}

func TestDeregister(t *testing.T) {
	p := newFakeProvider()
	r := newRegistrar(p, &fakeTunnel{url: "https://x.ngrok.app"})
	ctx := context.Background()

	if err := r.Deregister(ctx); err != nil {
		t.Fatalf("deregister without registration: %v", err)
	}

	reg, err := r.EnsureRegistered(ctx, 8080, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Deregister(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.hooks[reg.ID]; ok {
		t.Errorf("hook not deleted")
	}
	if _, ok := r.Current(); ok {
		t.Errorf("registration still cached")
	}

	// Hook already gone on the provider side.
	reg, _ = r.EnsureRegistered(ctx, 8080, "s")
	delete(p.hooks, reg.ID)
	if err := r.Deregister(ctx); err != nil {
		t.Errorf("missing hook should not be an error: %v", err)
	}
}

func TestStaticURL(t *testing.T) {
	p := newFakeProvider()
	r := newRegistrar(p, registrar.StaticURL("https://sync.example.com"))

	reg, err := r.EnsureRegistered(context.Background(), 8080, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.TargetURL != "https://sync.example.com/webhook" {
		t.Errorf("unexpected target %s", reg.TargetURL)
	}
}
