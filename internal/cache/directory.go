// Package cache holds the read-through client directory used by list views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	directoryKey = "taxengine:clients:directory"
	// versionKey is bumped by Invalidate; cached entries from older versions are ignored
	versionKey = "taxengine:clients:directory:version"
)

// ClientSummary is one row of the cached client directory
type ClientSummary struct {
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	CompanyNumber string `json:"companyNumber"`
	YearEndMonth  *int   `json:"yearEndMonth"`
	YearEndDay    *int   `json:"yearEndDay"`
}

// directoryEntry is the stored form: the rows and the version they were loaded under
type directoryEntry struct {
	Version int64           `json:"version"`
	Clients []ClientSummary `json:"clients"`
}

// Loader reads the authoritative directory, normally from the database
type Loader func(ctx context.Context) ([]ClientSummary, error)

// Directory caches the active-client directory for ttl. Writers call
// Invalidate; readers call Get which reloads on miss or expiry.
//
// A Refresh whose load overlaps an Invalidate may still write its rows, but
// they carry the version read before the load and Get treats them as a miss.
// A reader never sees rows older than the last completed Invalidate.
type Directory struct {
	store  Store
	load   Loader
	ttl    time.Duration
	logger *zap.Logger
	// observe receives "hit", "miss" or "error" for every Get
	observe func(result string)
}

func NewDirectory(store Store, load Loader, ttl time.Duration, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{store: store, load: load, ttl: ttl, logger: logger, observe: func(string) {}}
}

// OnLookup registers fn to be told the outcome of every Get
func (d *Directory) OnLookup(fn func(result string)) {
	if fn != nil {
		d.observe = fn
	}
}

// Get returns the cached directory, loading it on a miss.
// Store failures fall back to the loader.
func (d *Directory) Get(ctx context.Context) ([]ClientSummary, error) {
	version, err := d.version(ctx)
	if err != nil {
		d.logger.Warn("client directory cache read failed", zap.Error(err))
		d.observe("error")
		return d.loadRows(ctx)
	}

	raw, err := d.store.Get(ctx, directoryKey)
	switch {
	case err == nil:
		var entry directoryEntry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr != nil {
			d.logger.Warn("discarding unreadable client directory cache entry")
			d.observe("error")
		} else if entry.Version != version {
			d.observe("miss")
		} else {
			d.observe("hit")
			return entry.Clients, nil
		}
	case errors.Is(err, ErrMiss):
		d.observe("miss")
	default:
		d.logger.Warn("client directory cache read failed", zap.Error(err))
		d.observe("error")
	}
	return d.refresh(ctx, version)
}

// Refresh reloads the directory and stores it
func (d *Directory) Refresh(ctx context.Context) ([]ClientSummary, error) {
	version, err := d.version(ctx)
	if err != nil {
		d.logger.Warn("client directory cache read failed", zap.Error(err))
		return d.loadRows(ctx)
	}
	return d.refresh(ctx, version)
}

// refresh stores freshly loaded rows under version, which must be read before loading
func (d *Directory) refresh(ctx context.Context, version int64) ([]ClientSummary, error) {
	out, err := d.loadRows(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(directoryEntry{Version: version, Clients: out})
	if err == nil {
		err = d.store.Set(ctx, directoryKey, raw, d.ttl)
	}
	if err != nil {
		d.logger.Warn("client directory cache write failed", zap.Error(err))
	}
	return out, nil
}

func (d *Directory) loadRows(ctx context.Context) ([]ClientSummary, error) {
	out, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []ClientSummary{}
	}
	return out, nil
}

// version reads the current directory version, zero before the first Invalidate
func (d *Directory) version(ctx context.Context) (int64, error) {
	raw, err := d.store.Get(ctx, versionKey)
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// Invalidate drops the cached directory. Bumping the version also voids rows
// that a concurrent Refresh loaded before this call and writes after it.
func (d *Directory) Invalidate(ctx context.Context) {
	if _, err := d.store.Incr(ctx, versionKey); err != nil {
		d.logger.Warn("client directory cache version bump failed", zap.Error(err))
	}
	if err := d.store.Delete(ctx, directoryKey); err != nil {
		d.logger.Warn("client directory cache invalidate failed", zap.Error(err))
	}
}
