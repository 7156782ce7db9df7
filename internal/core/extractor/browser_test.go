package extractor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestBrowserProfilePerRender(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "profiles")
	b := NewBrowser(BrowserConfig{UserDataDir: parent})

	const renders = 8
	dirs := make([]string, renders)
	var wg sync.WaitGroup
	for i := 0; i < renders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := b.newProfileDir()
			if err != nil {
				t.Error(err)
				return
			}
			dirs[i] = dir
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if seen[dir] {
			t.Errorf("profile %s handed to two renders", dir)
		}
		seen[dir] = true
		if filepath.Dir(dir) != parent {
			t.Errorf("profile %s not under %s", dir, parent)
		}
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("profile %s not created: %v", dir, err)
		}
	}
}

func TestBrowserProfileDefaultsToTempDir(t *testing.T) {
	b := NewBrowser(BrowserConfig{})
	dir, err := b.newProfileDir()
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if filepath.Dir(dir) != filepath.Clean(os.TempDir()) {
		t.Errorf("profile %s not under %s", dir, os.TempDir())
	}
}
