package docker

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startUnixServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "docker.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return sock
}

func TestStreamClientCarriesNoOverallTimeout(t *testing.T) {
	c := NewClient("/run/docker.sock")
	if c.http.Timeout == 0 {
		t.Fatal("json client must keep its request timeout")
	}
	if c.streamHTTP.Timeout != 0 {
		t.Fatalf("stream client timeout = %v, want none: it would cut off follow/export mid-body", c.streamHTTP.Timeout)
	}
	if c.http.Transport != c.streamHTTP.Transport {
		t.Fatal("both clients must share the socket transport")
	}
}

func TestExportContainerReadsChunkedStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/containers/web/export", func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			w.Write(bytes.Repeat([]byte{'x'}, 1024))
			fl.Flush()
			time.Sleep(20 * time.Millisecond)
		}
	})
	c := NewClient(startUnixServer(t, mux))

	rc, err := c.ExportContainer(context.Background(), "web")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if len(b) != 3072 {
		t.Fatalf("read %d bytes, want 3072", len(b))
	}
}

func TestStreamErrorStatusSurfacesBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "No such container: web", http.StatusNotFound)
	})
	c := NewClient(startUnixServer(t, mux))

	if _, err := c.ExportContainer(context.Background(), "web"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}

func TestPingOverSocket(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_ping", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "OK")
	})
	c := NewClient(startUnixServer(t, mux))

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
