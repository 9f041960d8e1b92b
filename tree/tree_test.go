package tree

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"git.wyat.me/object-store/object"
	"git.wyat.me/object-store/store"
	"git.wyat.me/object-store/store/loose"
)

func newTestStore(t *testing.T) *loose.LooseStore {
	t.Helper()
	s, err := loose.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func writeFiles(t *testing.T, root string, files map[string]string, order []string) {
	t.Helper()
	for _, name := range order {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestComposeMatchesGit(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"hello.txt": "hello\n"}, []string{"hello.txt"})

	sha, err := NewComposer(s, Options{}).Compose(dir)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	// mkdir d && cd d && printf 'hello\n' > hello.txt && git init -q && git add . && git write-tree
	const expectedSHA = "aaa96ced2d9a1c8e72c56b253a0e2fe78393feb7"
	if sha != expectedSHA {
		t.Errorf("SHA mismatch: got %s, want %s", sha, expectedSHA)
	}

	exists, err := s.Exists("ce013625030ba8dba906f756967f9e9ca394464a")
	if err != nil || !exists {
		t.Errorf("expected blob for hello.txt to be stored: %v", err)
	}
}

func TestComposeSortsEntries(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	files := map[string]string{"zulu": "z", "mike": "m", "alpha": "a", "Bravo/x": "x"}
	writeFiles(t, dir, files, []string{"zulu", "mike", "alpha", "Bravo/x"})

	sha, err := NewComposer(s, Options{}).Compose(dir)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	names, err := ListNames(s, sha)
	if err != nil {
		t.Fatalf("ListNames failed: %v", err)
	}
	want := []string{"Bravo", "alpha", "mike", "zulu"}
	if !slices.Equal(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
	if !slices.IsSorted(names) {
		t.Errorf("names not in byte order: %v", names)
	}

	entries, err := Read(s, sha)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Mode != object.ModeDir {
		t.Errorf("Bravo: got mode %s, want %s", entries[0].Mode, object.ModeDir)
	}
	if entries[1].Mode != object.ModeFile {
		t.Errorf("alpha: got mode %s, want %s", entries[1].Mode, object.ModeFile)
	}
}

func TestComposeDeterministic(t *testing.T) {
	s := newTestStore(t)
	files := map[string]string{
		"a.txt":         "a",
		"b/c.txt":       "c",
		"b/d/e.txt":     "e",
		"b/d/f.txt":     "f",
		"g/h/i/j/k.txt": "k",
	}
	order := []string{"a.txt", "b/c.txt", "b/d/e.txt", "b/d/f.txt", "g/h/i/j/k.txt"}
	reversed := slices.Clone(order)
	slices.Reverse(reversed)

	first := t.TempDir()
	second := t.TempDir()
	writeFiles(t, first, files, order)
	writeFiles(t, second, files, reversed)

	c := NewComposer(s, Options{})
	sha1, err := c.Compose(first)
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.Compose(first)
	if err != nil {
		t.Fatal(err)
	}
	sha2, err := c.Compose(second)
	if err != nil {
		t.Fatal(err)
	}
	if sha1 != again || sha1 != sha2 {
		t.Errorf("tree keys differ: %s, %s, %s", sha1, again, sha2)
	}

	// 5 distinct blobs + trees for root, b, b/d, g, g/h, g/h/i, g/h/i/j
	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Errorf("expected 12 objects after three composes, got %d", n)
	}
}

func TestComposeChangeAltersKey(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"sub/file": "one"}, []string{"sub/file"})

	c := NewComposer(s, Options{})
	before, err := c.Compose(dir)
	if err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, map[string]string{"sub/file": "two"}, []string{"sub/file"})
	after, err := c.Compose(dir)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("changing a nested file did not change the root tree key")
	}
}

func TestComposeEmptyDirectory(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	sha, err := NewComposer(s, Options{}).Compose(dir)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if sha != "4b825dc642cb6eb9a060e54bf8d69288fbee4904" {
		t.Errorf("empty tree SHA mismatch: got %s", sha)
	}
	entries, err := Read(s, sha)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestComposeSkipsMetadataDir(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"keep":        "k",
		".git/HEAD":   "ref: refs/heads/main\n",
		"sub/.git/x":  "x",
		".store/conf": "c",
	}, []string{"keep", ".git/HEAD", "sub/.git/x", ".store/conf"})

	sha, err := NewComposer(s, Options{}).Compose(dir)
	if err != nil {
		t.Fatal(err)
	}
	names, err := ListNames(s, sha)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".store", "keep", "sub"}; !slices.Equal(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}

	sha, err = NewComposer(s, Options{MetadataDir: ".store"}).Compose(dir)
	if err != nil {
		t.Fatal(err)
	}
	names, err = ListNames(s, sha)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".git", "keep", "sub"}; !slices.Equal(names, want) {
		t.Errorf("custom metadata dir: got %v, want %v", names, want)
	}
}

func TestComposeModes(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(filepath.Join(dir, "run.sh"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("run.sh", filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	sha, err := NewComposer(s, Options{}).Compose(dir)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := Read(s, sha)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Name != "link" || entries[0].Mode != object.ModeSymlink {
		t.Errorf("link: got %+v", entries[0])
	}
	if entries[1].Name != "run.sh" || entries[1].Mode != object.ModeExecutable {
		t.Errorf("run.sh: got %+v", entries[1])
	}

	data, err := store.ReadType(s, entries[0].SHA, object.TypeBlob)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "run.sh" {
		t.Errorf("symlink blob should hold the target, got %q", data)
	}
}

func TestComposeMaxDepth(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	deep := filepath.Join(dir, strings.Repeat("d/", 5))
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := NewComposer(s, Options{MaxDepth: 5}).Compose(dir); err != nil {
		t.Errorf("depth 5 with limit 5: %v", err)
	}
	_, err := NewComposer(s, Options{MaxDepth: 4}).Compose(dir)
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}
}

func TestComposeMissingDirectory(t *testing.T) {
	s := newTestStore(t)

	_, err := NewComposer(s, Options{}).Compose(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, object.ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestReadRejectsOtherKinds(t *testing.T) {
	s := newTestStore(t)

	sha, err := store.Write(s, object.TypeBlob, []byte("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ListNames(s, sha); !errors.Is(err, object.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := ListNames(s, "0000000000000000000000000000000000000000"); !errors.Is(err, object.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadCorruptTree(t *testing.T) {
	s := newTestStore(t)

	sha, err := store.Write(s, object.TypeTree, []byte("100644 truncated\x00abc"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Read(s, sha); !errors.Is(err, object.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}
