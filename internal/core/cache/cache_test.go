package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/extractor"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

func TestKey(t *testing.T) {
	a := Key("tiktok", "https://www.tiktok.com/@a/video/1", "auto")
	if a != Key("tiktok", "https://www.tiktok.com/@a/video/1", "auto") {
		t.Error("Key is not deterministic")
	}
	others := []string{
		Key("tiktok", "https://www.tiktok.com/@a/video/1", "hd"),
		Key("tiktok", "https://www.tiktok.com/@a/video/2", "auto"),
		Key("universal", "https://www.tiktok.com/@a/video/1", "auto"),
	}
	for _, k := range others {
		if k == a {
			t.Errorf("Key collision: %s", k)
		}
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	resp := envelope.Success(platform.TikTok, nil)
	if err := c.Set(context.Background(), "k", &resp); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

// Runs against a real server when SOCIALDL_TEST_REDIS is set, e.g. localhost:6379
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("SOCIALDL_TEST_REDIS")
	if addr == "" {
		t.Skip("SOCIALDL_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	key := Key("tiktok", "https://www.tiktok.com/@a/video/"+time.Now().Format("150405.000"), "auto")
	defer client.Del(ctx, key)

	if _, err := c.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() before Set error = %v", err)
	}

	fail := envelope.Failure(platform.TikTok, envelope.ExtractionFailed, "m", "d")
	if err := c.Set(ctx, key, &fail); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatal("failure envelope was cached")
	}

	ok := envelope.Success(platform.TikTok, &extractor.ExtractedMedia{
		Title:     "clip",
		VideoURLs: map[string]string{"hd": "https://cdn/hd.mp4"},
	})
	if err := c.Set(ctx, key, &ok); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Data.Title != "clip" || got.Data.Downloads.Video["hd"] != "https://cdn/hd.mp4" {
		t.Errorf("Get() = %+v", got.Data)
	}
}
