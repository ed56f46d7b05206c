package main

import (
	"testing"
	"time"
)

func TestEventCache_AddAndExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newEventCache(time.Minute, 10)
	c.now = func() time.Time { return now }

	if !c.Add("a") {
		t.Fatal("first Add should report a new key")
	}
	if c.Add("a") {
		t.Error("second Add of the same key should report a duplicate")
	}
	if !c.Contains("a") {
		t.Error("Contains(a) = false")
	}

	now = now.Add(2 * time.Minute)
	if c.Contains("a") {
		t.Error("expired key still reported")
	}
	if !c.Add("a") {
		t.Error("Add after expiry should report a new key")
	}
}

func TestEventCache_CleanupAtCapacity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newEventCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	c.Add("a")
	c.Add("b")
	now = now.Add(2 * time.Minute)
	c.Add("c")

	if got := c.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1 after cleanup", got)
	}
}

func TestEventCache_EvictsOldestWhenFull(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newEventCache(time.Hour, 2)
	c.now = func() time.Time { return now }

	c.Add("a")
	now = now.Add(time.Second)
	c.Add("b")
	now = now.Add(time.Second)
	if !c.Add("c") {
		t.Fatal("Add(c) on a full cache should report a new key")
	}

	if got := c.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
	if c.Contains("a") {
		t.Error("oldest entry a should have been evicted")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Error("newer entries b and c should be kept")
	}
}
