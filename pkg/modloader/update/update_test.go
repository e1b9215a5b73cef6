package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jamesainslie/modloader/pkg/modloader/mod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateServer(t *testing.T, version string, files string) (*httptest.Server, *int) {
	t.Helper()
	fileRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/physics/mod_version.ini", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "modloader", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("[Main]\r\nVersionString=" + version + "\r\nDownloadSizeString=3.2 MB\r\n"))
	})
	mux.HandleFunc("/physics/mod_files.txt", func(w http.ResponseWriter, r *http.Request) {
		fileRequests++
		_, _ = w.Write([]byte(files))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &fileRequests
}

func TestCheck_Available(t *testing.T) {
	srv, fileRequests := updateServer(t, "1.3.0", "mod.ini\r\ndisk/bb/Sonic.cpk\r\n\r\n; comment\r\n")

	res, err := New().Check(context.Background(), mod.Mod{
		Title:        "Physics",
		Version:      "1.2",
		UpdateServer: srv.URL + "/physics/",
	})
	require.NoError(t, err)
	assert.Equal(t, Available, res.Status)
	assert.Equal(t, "1.3.0", res.Latest)
	assert.Equal(t, "3.2 MB", res.DownloadSize)
	assert.Equal(t, []string{"mod.ini", "disk/bb/Sonic.cpk"}, res.Files)
	assert.Equal(t, 1, *fileRequests)
}

func TestCheck_UpToDate(t *testing.T) {
	srv, fileRequests := updateServer(t, "1.2", "")

	// The server URL without a trailing slash still resolves.
	res, err := New().Check(context.Background(), mod.Mod{
		Title:        "Physics",
		Version:      "v1.2.0",
		UpdateServer: srv.URL + "/physics",
	})
	require.NoError(t, err)
	assert.Equal(t, UpToDate, res.Status)
	assert.Zero(t, *fileRequests, "file list should not be fetched")
}

func TestCheck_NoServer(t *testing.T) {
	res, err := New().Check(context.Background(), mod.Mod{Title: "A", URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, Manual, res.Status)
	assert.Equal(t, "https://example.com/a", res.URL)

	res, err = New().Check(context.Background(), mod.Mod{Title: "B"})
	require.NoError(t, err)
	assert.Equal(t, Unsupported, res.Status)
}

func TestCheck_BadResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/empty/mod_version.ini", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[Main]\nDownloadSizeString=1 MB\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		name   string
		server string
	}{
		{"not found", srv.URL + "/missing/"},
		{"no version", srv.URL + "/empty/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Check(context.Background(), mod.Mod{Title: "X", Version: "1", UpdateServer: tt.server})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadResponse))
		})
	}
}

func TestParseFileList_LongLines(t *testing.T) {
	// Longer than bufio's default token limit.
	long := "disk/" + strings.Repeat("a", 100*1024) + ".cpk"

	files, err := parseFileList([]byte("mod.ini\n" + long + "\nlast.cpk\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mod.ini", long, "last.cpk"}, files)

	files, err = parseFileList([]byte("mod.ini\n" + strings.Repeat("b", maxBodySize+1) + "\nlast.cpk\n"))
	require.Error(t, err)
	assert.Nil(t, files)
}

func TestCheck_UnreadableFileList(t *testing.T) {
	srv, _ := updateServer(t, "2.0", strings.Repeat("x", maxBodySize))

	_, err := New().Check(context.Background(), mod.Mod{Title: "X", Version: "1", UpdateServer: srv.URL + "/physics/"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestCheck_ContextCanceled(t *testing.T) {
	srv, _ := updateServer(t, "2.0", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Check(ctx, mod.Mod{Title: "X", Version: "1", UpdateServer: srv.URL + "/physics/"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"1.0", "1.1", true},
		{"1.1", "1.0", false},
		{"v1.2.0", "1.2", false},
		{"1.2", "1.2", false},
		{"beta", "beta 2", true},
		{"Final", "Final", false},
		{"", "1.0", true},
		{"1.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.current, tt.latest))
		})
	}
}
