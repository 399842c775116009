// Package cache implements the versioned cache namespace manager.
//
// Three namespace families exist: shell assets, API responses, and
// calculation results. Each family has exactly one live generation, named
// from the configured version tag; activation deletes every other
// generation of a known family. Entries are never expired by time — the
// namespace version is the unit of eviction.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/payoff/internal/common"
	"github.com/bobmcallan/payoff/internal/interfaces"
	"github.com/bobmcallan/payoff/internal/models"
)

// Manager owns the namespace registry and mediates all cache reads/writes.
// A go-cache hot layer sits over the persistent store; it holds no TTLs
// and is flushed whenever a namespace is evicted.
type Manager struct {
	cfg      common.CacheConfig
	store    interfaces.CacheStore
	upstream interfaces.UpstreamClient
	hot      *gocache.Cache
	logger   *common.Logger
}

// NewManager creates a cache manager over the given store and upstream.
func NewManager(cfg common.CacheConfig, store interfaces.CacheStore, upstream interfaces.UpstreamClient, logger *common.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		upstream: upstream,
		hot:      gocache.New(gocache.NoExpiration, 0),
		logger:   logger,
	}
}

// CurrentName returns the live namespace name for a family.
func (m *Manager) CurrentName(purpose models.Purpose) string {
	return models.NamespaceName(m.cfg.Prefix, purpose, m.version(purpose))
}

func (m *Manager) version(purpose models.Purpose) string {
	switch purpose {
	case models.PurposeShell:
		return m.cfg.ShellVersion
	case models.PurposeAPI:
		return m.cfg.APIVersion
	default:
		return m.cfg.CalcVersion
	}
}

func (m *Manager) familyPrefix(purpose models.Purpose) string {
	return fmt.Sprintf("%s-%s-", m.cfg.Prefix, purpose)
}

// Precache fetches the configured shell manifest into the shell namespace
// and registers the current generation of all three families. Any manifest
// fetch failure fails the whole step: a partially cached shell is worse
// than a retried install.
func (m *Manager) Precache(ctx context.Context) error {
	for _, purpose := range models.AllPurposes {
		ns := &models.Namespace{
			Name:      m.CurrentName(purpose),
			Purpose:   purpose,
			Version:   m.version(purpose),
			CreatedAt: time.Now(),
		}
		if err := m.store.SaveNamespace(ctx, ns); err != nil {
			return fmt.Errorf("failed to register namespace %s: %w", ns.Name, err)
		}
	}

	shell := m.CurrentName(models.PurposeShell)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range m.cfg.ShellManifest {
		path := path
		g.Go(func() error {
			resp, err := m.upstream.Fetch(gctx, "GET", path, nil, nil)
			if err != nil {
				return fmt.Errorf("precache fetch %s: %w", path, err)
			}
			if !resp.OK() {
				return fmt.Errorf("precache fetch %s: upstream returned %d", path, resp.StatusCode)
			}
			return m.putEntry(gctx, shell, "GET", path, resp)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.logger.Info().
		Str("namespace", shell).
		Int("assets", len(m.cfg.ShellManifest)).
		Msg("Shell manifest precached")
	return nil
}

// EvictStale deletes every namespace whose name matches a known family
// prefix but is not the current generation of any family. Returns the
// names deleted.
func (m *Manager) EvictStale(ctx context.Context) ([]string, error) {
	namespaces, err := m.store.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate namespaces: %w", err)
	}

	current := make(map[string]bool, len(models.AllPurposes))
	for _, purpose := range models.AllPurposes {
		current[m.CurrentName(purpose)] = true
	}

	var deleted []string
	for _, ns := range namespaces {
		if current[ns.Name] {
			continue
		}
		known := false
		for _, purpose := range models.AllPurposes {
			if strings.HasPrefix(ns.Name, m.familyPrefix(purpose)) {
				known = true
				break
			}
		}
		if !known {
			continue
		}

		entries, err := m.store.DeleteNamespace(ctx, ns.Name)
		if err != nil {
			return deleted, fmt.Errorf("failed to evict namespace %s: %w", ns.Name, err)
		}
		m.logger.Info().
			Str("namespace", ns.Name).
			Int("entries", entries).
			Msg("Stale namespace evicted")
		deleted = append(deleted, ns.Name)
	}

	if len(deleted) > 0 {
		// Hot layer may hold entries from evicted generations.
		m.hot.Flush()
	}
	return deleted, nil
}

// Get returns the cached response for a request, if present. Storage errors
// are logged and reported as a miss: a broken cache read must degrade to
// the next strategy step, not fail the request.
func (m *Manager) Get(ctx context.Context, purpose models.Purpose, method, url string) (*models.Response, bool) {
	key := models.EntryKey(m.CurrentName(purpose), method, url)

	if v, ok := m.hot.Get(key); ok {
		entry := v.(*models.CachedResponse)
		return &entry.Response, true
	}

	entry, err := m.store.GetEntry(ctx, m.CurrentName(purpose), method, url)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	m.hot.Set(key, entry, gocache.NoExpiration)
	return &entry.Response, true
}

// Put stores a response under the current generation of a family.
func (m *Manager) Put(ctx context.Context, purpose models.Purpose, method, url string, resp *models.Response) error {
	return m.putEntry(ctx, m.CurrentName(purpose), method, url, resp)
}

func (m *Manager) putEntry(ctx context.Context, namespace, method, url string, resp *models.Response) error {
	entry := &models.CachedResponse{
		Key:       models.EntryKey(namespace, method, url),
		Namespace: namespace,
		Method:    method,
		URL:       url,
		Response:  *resp,
		StoredAt:  time.Now(),
	}
	if err := m.store.PutEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to cache %s %s: %w", method, url, err)
	}
	m.hot.Set(entry.Key, entry, gocache.NoExpiration)
	return nil
}
