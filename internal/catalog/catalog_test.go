// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package catalog

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/mledesma/hestia/internal/models"
)

func rec(id, owner, group string) models.PropertyRecord {
	return models.PropertyRecord{ID: id, OwnerID: owner, Name: "prop-" + id, MapGroupID: group}
}

func TestReplaceOwnerBasic(t *testing.T) {
	c := New()

	c.ReplaceOwner("alice", []models.PropertyRecord{rec("p1", "alice", ""), rec("p2", "alice", "")})
	c.ReplaceOwner("bob", []models.PropertyRecord{rec("p3", "bob", "")})

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if got := len(c.Owner("alice")); got != 2 {
		t.Errorf("Owner(alice) has %d records, want 2", got)
	}

	// Replacing alice drops her old records entirely.
	c.ReplaceOwner("alice", []models.PropertyRecord{rec("p9", "alice", "")})
	if c.Len() != 2 {
		t.Errorf("Len() after replace = %d, want 2", c.Len())
	}
	if got := c.Owner("alice"); len(got) != 1 || got[0].ID != "p9" {
		t.Errorf("Owner(alice) = %v, want only p9", got)
	}
}

func TestReplaceOwnerIdempotent(t *testing.T) {
	c := New()
	records := []models.PropertyRecord{rec("p2", "alice", ""), rec("p1", "alice", "")}

	c.ReplaceOwner("alice", records)
	first := c.All()

	c.ReplaceOwner("alice", records)
	second := c.All()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("replace twice with identical data differs:\n%v\n%v", first, second)
	}
}

func TestReplaceOwnerEmptyDeletesPartition(t *testing.T) {
	c := New()
	c.ReplaceOwner("alice", []models.PropertyRecord{rec("p1", "alice", "")})
	c.ReplaceOwner("alice", nil)

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if c.Owners() != 0 {
		t.Errorf("Owners() = %d, want 0", c.Owners())
	}
}

func TestReplaceOwnerForcesOwnerID(t *testing.T) {
	c := New()
	// A record claiming a different owner is claimed by the partition it
	// is inserted into.
	c.ReplaceOwner("alice", []models.PropertyRecord{rec("p1", "mallory", "")})

	got := c.Owner("alice")
	if len(got) != 1 || got[0].OwnerID != "alice" {
		t.Errorf("Owner(alice) = %v, want OwnerID forced to alice", got)
	}
}

func TestFilterByGroup(t *testing.T) {
	c := New()
	c.ReplaceOwner("alice", []models.PropertyRecord{
		rec("p1", "alice", "g1"),
		rec("p2", "alice", "g2"),
	})
	c.ReplaceOwner("bob", []models.PropertyRecord{rec("p3", "bob", "g1")})

	got := c.FilterByGroup("g1")
	if len(got) != 2 {
		t.Fatalf("FilterByGroup(g1) returned %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.MapGroupID != "g1" {
			t.Errorf("FilterByGroup(g1) returned record with group %q", r.MapGroupID)
		}
	}
	if got := c.FilterByGroup("missing"); got != nil {
		t.Errorf("FilterByGroup(missing) = %v, want nil", got)
	}
}

func TestRestoreReplacesEverything(t *testing.T) {
	c := New()
	c.ReplaceOwner("old", []models.PropertyRecord{rec("p0", "old", "")})

	c.Restore([]models.PropertyRecord{
		rec("p1", "alice", ""),
		rec("p2", "bob", ""),
		rec("p3", "alice", ""),
	})

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Owner("old") != nil {
		t.Error("Owner(old) survived Restore")
	}
	if got := len(c.Owner("alice")); got != 2 {
		t.Errorf("Owner(alice) has %d records, want 2", got)
	}
}

func TestConcurrentReadersSeeConsistentOwnerView(t *testing.T) {
	c := New()

	// Two alternating versions for the same owner. Readers must always see
	// one version in full, never a mixture.
	versionA := []models.PropertyRecord{rec("a1", "alice", ""), rec("a2", "alice", "")}
	versionB := []models.PropertyRecord{rec("b1", "alice", ""), rec("b2", "alice", ""), rec("b3", "alice", "")}
	c.ReplaceOwner("alice", versionA)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				c.ReplaceOwner("alice", versionB)
			} else {
				c.ReplaceOwner("alice", versionA)
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				got := c.Owner("alice")
				switch len(got) {
				case 2:
					if got[0].ID != "a1" || got[1].ID != "a2" {
						t.Errorf("torn read: %v", got)
						return
					}
				case 3:
					if got[0].ID != "b1" || got[1].ID != "b2" || got[2].ID != "b3" {
						t.Errorf("torn read: %v", got)
						return
					}
				default:
					t.Errorf("torn read, %d records: %v", len(got), got)
					return
				}
			}
		}()
	}

	// Concurrent replaces of distinct owners must not interfere either.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c.ReplaceOwner("bob", []models.PropertyRecord{rec(fmt.Sprintf("bob-%d", i), "bob", "")})
		}
	}()

	wg.Add(1)
	go func() {
		defer func() {
			close(done)
			wg.Done()
		}()
		for i := 0; i < 500; i++ {
			_ = c.All()
		}
	}()

	wg.Wait()
}
