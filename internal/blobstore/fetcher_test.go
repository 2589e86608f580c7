package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestFetcher(store *MemStore) *Fetcher {
	return NewFetcher(store, NewResolver(store, 100, nil), bucket, 100, nil)
}

func TestFetch_Direct(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "protected/abc/audio/t1/clip.mp3", []byte("ID3"))

	data, err := newTestFetcher(store).Fetch(context.Background(),
		"https://field-audio.s3.us-east-1.amazonaws.com/protected/abc/audio/t1/clip.mp3", "t1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "ID3" {
		t.Fatalf("data = %q", data)
	}
	if calls := store.Calls(); len(calls) != 1 {
		t.Fatalf("expected a single read, got %v", calls)
	}
}

func TestFetch_ResolvesMissingKey(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "protected/abc/audio/t1/clip.mp3", []byte("ID3"))

	data, err := newTestFetcher(store).Fetch(context.Background(),
		"https://s3.amazonaws.com/field-audio/abc/audio/t1/clip.mp3", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "ID3" {
		t.Fatalf("data = %q", data)
	}
}

func TestFetch_OtherErrorsSkipSearch(t *testing.T) {
	store := NewMemStore()
	denied := errors.New("AccessDenied: forbidden")
	store.GetErr[bucket+"/protected/abc/clip.mp3"] = denied

	_, err := newTestFetcher(store).Fetch(context.Background(), "s3://field-audio/protected/abc/clip.mp3", "")
	if !errors.Is(err, denied) {
		t.Fatalf("err = %v, want the permission error", err)
	}
	for _, c := range store.Calls() {
		if strings.HasPrefix(c, "list ") || strings.HasPrefix(c, "exists ") {
			t.Fatalf("search ran for a non-missing error: %v", store.Calls())
		}
	}
}

func TestFetch_NotFoundAnywhere(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "protected/other/file.wav", []byte("x"))
	loc := "https://field-audio.s3.amazonaws.com/protected/abc/audio/t1/clip.mp3"

	_, err := newTestFetcher(store).Fetch(context.Background(), loc, "t1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), loc) {
		t.Fatalf("error %q should carry the locator", err)
	}
}

func TestFetch_BareKeyUsesDefaultBucket(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "public/a.wav", []byte("RIFF"))

	data, err := newTestFetcher(store).Fetch(context.Background(), "/public/a.wav", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "RIFF" {
		t.Fatalf("data = %q", data)
	}
}

func TestFetch_InvalidLocator(t *testing.T) {
	f := NewFetcher(NewMemStore(), NewResolver(NewMemStore(), 0, nil), "", 0, nil)
	if _, err := f.Fetch(context.Background(), "ftp://x/y.mp3", ""); !errors.Is(err, ErrInvalidLocator) {
		t.Fatalf("err = %v", err)
	}
}

func TestLastChance_FilenameOnly(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "archive/2019/clip.mp3", []byte("old"))
	f := newTestFetcher(store)

	data, key, ok := f.lastChance(context.Background(), Locator{Bucket: bucket, Key: "gone/clip.mp3"})
	if !ok || key != "archive/2019/clip.mp3" || string(data) != "old" {
		t.Fatalf("lastChance = %q %q %v", data, key, ok)
	}
}

func TestFetch_FolderLocatorRejected(t *testing.T) {
	store := NewMemStore()
	store.Put(bucket, "protected/abc/audio/t9/other-tree.mp3", []byte("x"))

	for _, raw := range []string{"s3://field-audio/protected/abc/audio/", "protected/abc/audio/"} {
		_, err := newTestFetcher(store).Fetch(context.Background(), raw, "t1")
		if !errors.Is(err, ErrInvalidLocator) {
			t.Fatalf("Fetch(%q) err = %v, want ErrInvalidLocator", raw, err)
		}
	}
	if calls := store.Calls(); len(calls) != 0 {
		t.Fatalf("store touched: %v", calls)
	}
}

func TestLocate_BareKeys(t *testing.T) {
	f := newTestFetcher(NewMemStore())

	loc, err := f.Locate("protected/abc/audio/t1/clip.mp3")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if loc.Bucket != bucket || loc.Key != "protected/abc/audio/t1/clip.mp3" {
		t.Fatalf("loc = %+v", loc)
	}
	if _, err := f.Locate("see clip.mp3 on the drive"); !errors.Is(err, ErrInvalidLocator) {
		t.Fatalf("free text err = %v", err)
	}
	noDefault := NewFetcher(NewMemStore(), NewResolver(NewMemStore(), 0, nil), "", 0, nil)
	if _, err := noDefault.Locate("protected/abc/audio/t1/clip.mp3"); !errors.Is(err, ErrInvalidLocator) {
		t.Fatalf("without default bucket err = %v", err)
	}
}
