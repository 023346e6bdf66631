package programs

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/models"
)

const publishedKey = "programs:published"

// PublishedLister lists published programs from the backing store.
type PublishedLister interface {
	ListPublished(ctx context.Context) ([]models.Program, error)
}

// Catalog serves the published program list from a short-lived in-process cache.
type Catalog struct {
	store  PublishedLister
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewCatalog creates a catalog caching the published list for ttl.
func NewCatalog(store PublishedLister, ttl time.Duration, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		store:  store,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Published returns published programs, newest start date first.
func (c *Catalog) Published(ctx context.Context) ([]models.Program, error) {
	if v, found := c.cache.Get(publishedKey); found {
		if list, ok := v.([]models.Program); ok {
			return list, nil
		}
		c.logger.Error("wrong type in catalog cache", zap.String("key", publishedKey))
	}
	list, err := c.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(publishedKey, list)
	return list, nil
}

// Search filters the published list by a case-insensitive substring over name, speaker and
// description, and by exact department. Empty arguments match everything.
func (c *Catalog) Search(ctx context.Context, q, department string) ([]models.Program, error) {
	list, err := c.Published(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(list, q, department), nil
}

// Departments returns the distinct conducting departments of published programs, sorted.
func (c *Catalog) Departments(ctx context.Context) ([]string, error) {
	list, err := c.Published(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range list {
		if _, ok := seen[p.ConductingDepartment]; ok || p.ConductingDepartment == "" {
			continue
		}
		seen[p.ConductingDepartment] = struct{}{}
		out = append(out, p.ConductingDepartment)
	}
	sort.Strings(out)
	return out, nil
}

// Invalidate drops the cached list after a write.
func (c *Catalog) Invalidate() {
	c.cache.Delete(publishedKey)
}

// Filter applies the catalog search rules to list without changing its order.
func Filter(list []models.Program, q, department string) []models.Program {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Program, 0, len(list))
	for _, p := range list {
		if department != "" && p.ConductingDepartment != department {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.ProgramName), q) &&
			!strings.Contains(strings.ToLower(p.SpeakerName), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}
