package registrar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"

	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/github"
)

// EnsureRegistered points one provider webhook at the tunnel's current URL.
// Repeated calls with an unchanged URL and secret do not touch the provider.
func (r *registrar) EnsureRegistered(ctx context.Context, localPort int, secret string) (model.WebhookRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	publicURL, err := r.tunnel.PublicURL(ctx, localPort)
	if err != nil {
		return model.WebhookRegistration{}, fmt.Errorf("resolve tunnel url: %w", err)
	}
	target := strings.TrimRight(publicURL, "/") + r.opts.WebhookPath

	cached, hasCached := r.Current()
	if hasCached && cached.TargetURL == target && cached.Secret == secret {
		r.l.Debugf(ctx, "registrar: webhook %d already points at %s", cached.ID, target)
		return cached, nil
	}

	hooks, err := r.provider.ListHooks(ctx, r.opts.Owner, r.opts.Repo)
	if err != nil {
		return model.WebhookRegistration{}, fmt.Errorf("list hooks: %w", err)
	}

	var exact *github.Hook
	var stale []github.Hook
	for _, h := range hooks {
		switch {
		case h.Config.URL == target && exact == nil:
			exact = &h
		case h.Config.URL == target, r.isOurs(h, cached, hasCached):
			stale = append(stale, h)
		}
	}

	input := github.HookInput{URL: target, Secret: secret, Events: r.opts.Events, Active: true}

	var hook github.Hook
	switch {
	case exact != nil:
		hook = *exact
		if r.needsUpdate(*exact, cached, hasCached, secret) {
			if hook, err = r.provider.UpdateHook(ctx, r.opts.Owner, r.opts.Repo, exact.ID, input); err != nil {
				return model.WebhookRegistration{}, fmt.Errorf("update hook %d: %w", exact.ID, err)
			}
			r.l.Infof(ctx, "registrar: refreshed webhook %d at %s", hook.ID, target)
		} else {
			r.l.Infof(ctx, "registrar: reusing webhook %d at %s", hook.ID, target)
		}
	case len(stale) > 0:
		first := stale[0]
		stale = stale[1:]
		if hook, err = r.provider.UpdateHook(ctx, r.opts.Owner, r.opts.Repo, first.ID, input); err != nil {
			return model.WebhookRegistration{}, fmt.Errorf("update hook %d: %w", first.ID, err)
		}
		r.l.Infof(ctx, "registrar: moved webhook %d from %s to %s", hook.ID, first.Config.URL, target)
	default:
		if hook, err = r.provider.CreateHook(ctx, r.opts.Owner, r.opts.Repo, input); err != nil {
			return model.WebhookRegistration{}, fmt.Errorf("create hook: %w", err)
		}
		r.l.Infof(ctx, "registrar: created webhook %d at %s", hook.ID, target)
	}

	if err := r.deleteDuplicates(ctx, stale); err != nil {
		r.l.Warnf(ctx, "registrar: failed to remove duplicate webhooks: %v", err)
	}

	if err := r.provider.PingHook(ctx, r.opts.Owner, r.opts.Repo, hook.ID); err != nil {
		r.l.Warnf(ctx, "registrar: ping of webhook %d failed: %v", hook.ID, err)
	}

	reg := model.WebhookRegistration{
		ID:        hook.ID,
		TargetURL: target,
		Secret:    secret,
		Events:    slices.Clone(r.opts.Events),
		Active:    true,
	}
	r.mu.Lock()
	r.current = &reg
	r.mu.Unlock()

	return reg, nil
}

// Deregister deletes the webhook registered by this process, if any.
func (r *registrar) Deregister(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	cur, ok := r.Current()
	if !ok {
		return nil
	}

	err := r.provider.DeleteHook(ctx, r.opts.Owner, r.opts.Repo, cur.ID)
	var apiErr *github.APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.IsNotFound()) {
		return fmt.Errorf("delete hook %d: %w", cur.ID, err)
	}

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
	r.l.Infof(ctx, "registrar: removed webhook %d", cur.ID)
	return nil
}

func (r *registrar) Current() (model.WebhookRegistration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return model.WebhookRegistration{}, false
	}
	return *r.current, true
}

// isOurs reports whether h was left by this daemon: the cached hook id, or a
// tunnel-hosted URL on our webhook path.
func (r *registrar) isOurs(h github.Hook, cached model.WebhookRegistration, hasCached bool) bool {
	if hasCached && h.ID == cached.ID {
		return true
	}

	u, err := url.Parse(h.Config.URL)
	if err != nil || u.Path != r.opts.WebhookPath {
		return false
	}
	host := u.Hostname()
	for _, suffix := range r.opts.HostSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// The provider never returns hook secrets, so a hook is only trusted to carry
// the current secret if this process set it.
func (r *registrar) needsUpdate(h github.Hook, cached model.WebhookRegistration, hasCached bool, secret string) bool {
	if !h.Active || !sameEvents(h.Events, r.opts.Events) {
		return true
	}
	return !hasCached || cached.ID != h.ID || cached.Secret != secret
}

func (r *registrar) deleteDuplicates(ctx context.Context, hooks []github.Hook) error {
	var result *multierror.Error
	for _, h := range hooks {
		if err := r.provider.DeleteHook(ctx, r.opts.Owner, r.opts.Repo, h.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete hook %d: %w", h.ID, err))
			continue
		}
		r.l.Infof(ctx, "registrar: deleted duplicate webhook %d (%s)", h.ID, h.Config.URL)
	}
	return result.ErrorOrNil()
}

func sameEvents(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
