package imageref

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type fakeFetcher struct {
	urls  []string
	dests []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) error {
	f.urls = append(f.urls, url)
	f.dests = append(f.dests, dest)
	return f.err
}

func TestDetect(t *testing.T) {
	tests := []struct {
		in     string
		ok     bool
		kind   Kind
		target string
	}{
		{"![[cat.png]] is cute.", true, Local, "cat.png"},
		{"![[img/cat.png|300]] sized", true, Local, "img/cat.png"},
		{"see ![a cat](https://x.test/cat.jpg)", true, Hosted, "https://x.test/cat.jpg"},
		{"![[a.png]] and ![b](https://x.test/b.png)", true, Local, "a.png"},
		{"just [[a link]]", false, 0, ""},
		{"plain text", false, 0, ""},
	}
	for _, tc := range tests {
		ref, ok := Detect(tc.in)
		if ok != tc.ok || ref.Kind != tc.kind || ref.Target != tc.target {
			t.Fatalf("Detect(%q) = %+v, %v; want kind=%d target=%q ok=%v", tc.in, ref, ok, tc.kind, tc.target, tc.ok)
		}
	}
}

func TestResolve_Local(t *testing.T) {
	r := Resolver{MediaRoot: "/vault/media", ScratchDir: t.TempDir()}
	got, err := r.Resolve(context.Background(), 0, "![[cat.png]] is cute.")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/vault/media", "cat.png") {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestResolve_None(t *testing.T) {
	got, err := Resolver{}.Resolve(context.Background(), 0, "no images here")
	if err != nil || got != "" {
		t.Fatalf("expected empty result, got %q, %v", got, err)
	}
}

func TestResolve_HostedKeyedByIndex(t *testing.T) {
	scratch := t.TempDir()
	f := &fakeFetcher{}
	r := Resolver{ScratchDir: scratch, Fetcher: f}

	got, err := r.Resolve(context.Background(), 4, "![x](https://x.test/pics/cat.PNG?size=large)")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(scratch, "image4.png") {
		t.Fatalf("unexpected path %q", got)
	}
	if f.urls[0] != "https://x.test/pics/cat.PNG?size=large" {
		t.Fatalf("unexpected url %q", f.urls[0])
	}
}

func TestResolve_HostedFailure(t *testing.T) {
	r := Resolver{ScratchDir: t.TempDir(), Fetcher: &fakeFetcher{err: errors.New("503")}}
	_, err := r.Resolve(context.Background(), 1, "![x](https://x.test/a.png)")
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}

	_, err = r.Resolve(context.Background(), 1, "![x](ftp://x.test/a.png)")
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload for unsupported scheme, got %v", err)
	}
}
