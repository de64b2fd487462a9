package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imagekit/config"
	"github.com/leeforge/imagekit/logging"
)

func loadConfig(t *testing.T, yaml string) AppConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	loader, err := config.NewConfig(config.ConfigOptions{BasePath: dir, FileName: "config", FileType: "yaml", Mode: config.TestMode})
	require.NoError(t, err)
	var cfg AppConfig
	require.NoError(t, loader.BindWithDefaults(&cfg))
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := loadConfig(t, "server:\n  addr: 127.0.0.1:9000\nprocessor:\n  pool-size: 3\n")

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Processor.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.Processor.PoolTimeout)
	assert.Equal(t, 0.85, cfg.Processor.DefaultQuality)
	assert.Equal(t, "jpg", cfg.HTTP.DefaultFormat)
	assert.EqualValues(t, 32<<20, cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "/media", cfg.Storage.Local.BaseURL)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.EqualValues(t, 256<<20, cfg.Cache.MaxBytes)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	base := loadConfig(t, "")
	require.NoError(t, base.Validate())

	bad := base
	bad.Processor.DefaultQuality = 1.2
	assert.Error(t, bad.Validate())

	bad = base
	bad.Processor.PoolSize = -1
	assert.Error(t, bad.Validate())

	bad = base
	bad.HTTP.MaxBodyBytes = -1
	assert.Error(t, bad.Validate())
}

func TestAppServeAndShutdown(t *testing.T) {
	cfg := loadConfig(t, "")
	media := t.TempDir()
	cfg.Storage.Local.BasePath = media
	cfg.Processor.PoolSize = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := newApp(ctx, cfg, logging.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	img := image.NewGray(image.Rect(0, 0, 300, 200))
	var src bytes.Buffer
	require.NoError(t, png.Encode(&src, img))

	resp, err = http.Post(base+"/v1/variants?presets=small&format=png", "image/png", bytes.NewReader(src.Bytes()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	matches, err := filepath.Glob(filepath.Join(media, "variants", "*", "small.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	rel, err := filepath.Rel(media, matches[0])
	require.NoError(t, err)
	resp, err = http.Get(base + "/media/" + filepath.ToSlash(rel))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestNewAppRejectsUnknownStorage(t *testing.T) {
	cfg := loadConfig(t, "storage:\n  type: s3\n")
	_, err := newApp(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)
}
