// Package docker talks to the Engine API over the local unix socket.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type Client struct {
	socketPath string
	http       *http.Client
	streamHTTP *http.Client
}

type ContainerSummary struct {
	ID      string            `json:"Id"`
	Names   []string          `json:"Names"`
	Image   string            `json:"Image"`
	State   string            `json:"State"`
	Status  string            `json:"Status"`
	Labels  map[string]string `json:"Labels"`
	Created int64             `json:"Created"`
}

// Name returns the primary name without the leading slash the API adds.
func (c ContainerSummary) Name() string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	if len(c.ID) >= 12 {
		return c.ID[:12]
	}
	return c.ID
}

type ContainerInspect struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	RestartCount int    `json:"RestartCount"`
	State        struct {
		StartedAt string `json:"StartedAt"`
		Status    string `json:"Status"`
	} `json:"State"`
	Config struct {
		Tty bool `json:"Tty"`
	} `json:"Config"`
}

type VersionInfo struct {
	Version    string `json:"Version"`
	APIVersion string `json:"ApiVersion"`
}

type Stats struct {
	Read     string `json:"read"`
	CPUStats struct {
		CPUUsage struct {
			TotalUsage  uint64   `json:"total_usage"`
			PercpuUsage []uint64 `json:"percpu_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs     uint64 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
	Networks map[string]struct {
		RxBytes uint64 `json:"rx_bytes"`
		TxBytes uint64 `json:"tx_bytes"`
	} `json:"networks"`
}

type PruneReport struct {
	ContainersDeleted []string `json:"ContainersDeleted"`
	VolumesDeleted    []string `json:"VolumesDeleted"`
	SpaceReclaimed    uint64   `json:"SpaceReclaimed"`
}

func NewClient(socketPath string) *Client {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return &Client{
		socketPath: socketPath,
		http:       &http.Client{Transport: transport, Timeout: 30 * time.Second},
		// Streaming endpoints (follow logs, export) have no bounded duration,
		// and Client.Timeout also covers reading the body. Cancellation for
		// these comes from the request context instead.
		streamHTTP: &http.Client{Transport: transport},
	}
}

// Installed reports whether the runtime socket exists at all, which is a
// different condition from the daemon being unreachable.
func (c *Client) Installed() bool {
	_, err := os.Stat(c.socketPath)
	return err == nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/_ping", nil)
	return err
}

func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	b, err := c.do(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return VersionInfo{}, err
	}
	var out VersionInfo
	if err := json.Unmarshal(b, &out); err != nil {
		return VersionInfo{}, err
	}
	return out, nil
}

func (c *Client) ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error) {
	p := "/containers/json"
	if all {
		p += "?all=1"
	}
	b, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	var out []ContainerSummary
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ContainerCounts reports running vs defined containers.
func (c *Client) ContainerCounts(ctx context.Context) (running, total int, err error) {
	containers, err := c.ListContainers(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	for _, ct := range containers {
		if strings.EqualFold(ct.State, "running") {
			running++
		}
	}
	return running, len(containers), nil
}

func (c *Client) InspectContainer(ctx context.Context, name string) (ContainerInspect, error) {
	b, err := c.do(ctx, http.MethodGet, "/containers/"+url.PathEscape(name)+"/json", nil)
	if err != nil {
		return ContainerInspect{}, err
	}
	var out ContainerInspect
	if err := json.Unmarshal(b, &out); err != nil {
		return ContainerInspect{}, err
	}
	return out, nil
}

// Stats fetches a single non-streaming stats sample.
func (c *Client) Stats(ctx context.Context, name string) (Stats, error) {
	b, err := c.do(ctx, http.MethodGet, "/containers/"+url.PathEscape(name)+"/stats?stream=false", nil)
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	if err := json.Unmarshal(b, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (c *Client) RestartContainer(ctx context.Context, name string, timeout time.Duration) error {
	p := fmt.Sprintf("/containers/%s/restart?t=%d", url.PathEscape(name), int(timeout.Seconds()))
	_, err := c.do(ctx, http.MethodPost, p, nil)
	return err
}

// Logs returns the raw multiplexed log stream; the caller owns closing it.
func (c *Client) Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("stdout", "1")
	q.Set("stderr", "1")
	q.Set("timestamps", "1")
	if follow {
		q.Set("follow", "1")
	}
	if tail > 0 {
		q.Set("tail", fmt.Sprintf("%d", tail))
	}
	return c.stream(ctx, "/containers/"+url.PathEscape(name)+"/logs?"+q.Encode())
}

// ExportContainer streams the container filesystem as an uncompressed tar.
func (c *Client) ExportContainer(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.stream(ctx, "/containers/"+url.PathEscape(name)+"/export")
}

func (c *Client) PruneContainers(ctx context.Context) (PruneReport, error) {
	return c.prune(ctx, "/containers/prune")
}

func (c *Client) PruneImages(ctx context.Context) (PruneReport, error) {
	return c.prune(ctx, "/images/prune")
}

func (c *Client) PruneVolumes(ctx context.Context) (PruneReport, error) {
	return c.prune(ctx, "/volumes/prune")
}

func (c *Client) prune(ctx context.Context, p string) (PruneReport, error) {
	b, err := c.do(ctx, http.MethodPost, p, nil)
	if err != nil {
		return PruneReport{}, err
	}
	var out PruneReport
	if err := json.Unmarshal(b, &out); err != nil {
		return PruneReport{}, err
	}
	return out, nil
}

func (c *Client) stream(ctx context.Context, p string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix"+p, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("docker api %s status %d: %s", p, res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Body, nil
}

func (c *Client) do(ctx context.Context, method, p string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+p, reader)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = res.Status
		}
		return nil, fmt.Errorf("docker api %s %s failed: %s", method, p, msg)
	}
	return b, nil
}
