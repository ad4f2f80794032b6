/*
 * Copyright (c) 2025 the Image Studio authors.
 * Licensed under the Apache License, Version 2.0.
 */

package store

import (
	"bytes"
	"context"
	"testing"
)

func TestThumbRoundTrip(t *testing.T) {
	lh := newTestLibrary(t)
	ctx := context.Background()

	if b, err := GetThumb(ctx, lh.Root, "a1", 1, 64, 64); err != nil || b != nil {
		t.Fatalf("miss: b=%v err=%v", b, err)
	}

	blob := []byte("thumb-bytes")
	if err := PutThumb(ctx, lh.Root, "a1", 1, 64, 64, blob); err != nil {
		t.Fatalf("PutThumb: %v", err)
	}
	got, err := GetThumb(ctx, lh.Root, "a1", 1, 64, 64)
	if err != nil {
		t.Fatalf("GetThumb: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("thumb = %q, want %q", got, blob)
	}

	// Different dimensions are a distinct cache slot.
	if b, err := GetThumb(ctx, lh.Root, "a1", 1, 128, 128); err != nil || b != nil {
		t.Fatalf("wrong-size lookup: b=%v err=%v", b, err)
	}
}

func TestGetOrCreateThumb(t *testing.T) {
	lh := newTestLibrary(t)
	ctx := context.Background()

	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("generated"), nil
	}
	for i := 0; i < 2; i++ {
		b, err := GetOrCreateThumb(ctx, lh.Root, "a1", 2, 32, 32, gen)
		if err != nil {
			t.Fatalf("GetOrCreateThumb: %v", err)
		}
		if string(b) != "generated" {
			t.Fatalf("thumb = %q", b)
		}
	}
	if calls != 1 {
		t.Fatalf("generator calls = %d, want 1", calls)
	}
}

func TestEvictThumbsToFit(t *testing.T) {
	lh := newTestLibrary(t)
	ctx := context.Background()

	big := make([]byte, 1000)
	for i := 0; i < 4; i++ {
		if err := PutThumb(ctx, lh.Root, "a1", i+1, 64, 64, big); err != nil {
			t.Fatalf("PutThumb: %v", err)
		}
	}
	db, err := InitOrOpenIndex(lh.Root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer db.Close()
	if err := EvictThumbsToFit(ctx, db, 2000); err != nil {
		t.Fatalf("EvictThumbsToFit: %v", err)
	}
	total, err := TotalThumbBytes(ctx, lh.Root)
	if err != nil {
		t.Fatalf("TotalThumbBytes: %v", err)
	}
	if total > 2000 {
		t.Fatalf("total after evict = %d, want <= 2000", total)
	}
}

func TestDropThumbs(t *testing.T) {
	lh := newTestLibrary(t)
	ctx := context.Background()
	if err := PutThumb(ctx, lh.Root, "a1", 1, 64, 64, []byte("x")); err != nil {
		t.Fatalf("PutThumb: %v", err)
	}
	if err := DropThumbs(lh.Root, "a1"); err != nil {
		t.Fatalf("DropThumbs: %v", err)
	}
	if b, err := GetThumb(ctx, lh.Root, "a1", 1, 64, 64); err != nil || b != nil {
		t.Fatalf("thumb survived drop: b=%v err=%v", b, err)
	}
}
