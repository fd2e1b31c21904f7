// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package catalog holds the live set of property records, partitioned by
// owner.
//
// Mutation is wholesale per-owner replacement only. Each write builds a
// complete new snapshot and publishes it with a single atomic pointer
// store, so readers always observe either the fully-old or the fully-new
// catalog and never block on a writer. The update-queue worker is the only
// intended writer; the implementation still serializes writers with a
// mutex so a misuse cannot corrupt the snapshot.
package catalog

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mledesma/hestia/internal/models"
)

// snapshot is one immutable version of the catalog. Slices inside a
// published snapshot are never modified.
type snapshot struct {
	byOwner map[string][]models.PropertyRecord
	all     []models.PropertyRecord
}

// Catalog is the concurrently readable property set.
type Catalog struct {
	snap    atomic.Pointer[snapshot]
	writeMu sync.Mutex
}

// New creates an empty catalog.
func New() *Catalog {
	c := &Catalog{}
	c.snap.Store(newSnapshot(nil))
	return c
}

// newSnapshot builds an immutable snapshot from an owner partition map.
// The flattened view is ordered by owner then record ID so repeated builds
// from the same data are observably identical.
func newSnapshot(byOwner map[string][]models.PropertyRecord) *snapshot {
	if byOwner == nil {
		byOwner = make(map[string][]models.PropertyRecord)
	}

	owners := make([]string, 0, len(byOwner))
	total := 0
	for owner, recs := range byOwner {
		owners = append(owners, owner)
		total += len(recs)
	}
	sort.Strings(owners)

	all := make([]models.PropertyRecord, 0, total)
	for _, owner := range owners {
		recs := append([]models.PropertyRecord(nil), byOwner[owner]...)
		sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
		all = append(all, recs...)
	}

	return &snapshot{byOwner: byOwner, all: all}
}

// ReplaceOwner removes every record for ownerID and inserts records in a
// single logical step. Replacing with an empty slice deletes the owner's
// partition. The operation is idempotent.
func (c *Catalog) ReplaceOwner(ownerID string, records []models.PropertyRecord) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current := c.snap.Load()
	next := make(map[string][]models.PropertyRecord, len(current.byOwner)+1)
	for owner, recs := range current.byOwner {
		if owner != ownerID {
			next[owner] = recs
		}
	}

	if len(records) > 0 {
		owned := make([]models.PropertyRecord, len(records))
		for i, r := range records {
			r.OwnerID = ownerID
			owned[i] = r
		}
		next[ownerID] = owned
	}

	c.snap.Store(newSnapshot(next))
}

// Restore replaces the entire catalog with the given records, partitioning
// them by owner. Used when hydrating from a snapshot at startup.
func (c *Catalog) Restore(records []models.PropertyRecord) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	byOwner := make(map[string][]models.PropertyRecord)
	for _, r := range records {
		byOwner[r.OwnerID] = append(byOwner[r.OwnerID], r)
	}
	c.snap.Store(newSnapshot(byOwner))
}

// All returns every record, ordered by owner then record ID. The returned
// slice is shared with the snapshot and must not be modified.
func (c *Catalog) All() []models.PropertyRecord {
	return c.snap.Load().all
}

// Owner returns the records of one owner, or nil.
func (c *Catalog) Owner(ownerID string) []models.PropertyRecord {
	return c.snap.Load().byOwner[ownerID]
}

// FilterByGroup returns the records whose MapGroupID equals groupID.
func (c *Catalog) FilterByGroup(groupID string) []models.PropertyRecord {
	snap := c.snap.Load()
	var out []models.PropertyRecord
	for _, r := range snap.all {
		if r.MapGroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the total record count.
func (c *Catalog) Len() int {
	return len(c.snap.Load().all)
}

// Owners returns the number of owner partitions.
func (c *Catalog) Owners() int {
	return len(c.snap.Load().byOwner)
}
