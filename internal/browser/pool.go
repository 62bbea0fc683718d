package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/internal/obs"
)

const (
	cdpPort      = "3000/tcp"
	readyRetries = 20
	readyDelay   = 500 * time.Millisecond
)

// DockerPool runs one browserless/chrome container per session and attaches
// to it over CDP.
type DockerPool struct {
	client   *client.Client
	chromium playwright.BrowserType
	image    string
}

var _ HealthChecker = (*DockerPool)(nil)

// sessionContainer describes the container of one session. It admits two
// browserless connections: Playwright's CDP attachment and the debug relay.
func sessionContainer(image, sessionID string) *container.Config {
	return &container.Config{
		Image: image,
		Labels: map[string]string{
			"session-id": sessionID,
			"managed-by": "playwright-lab",
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=2",
			"PREBOOT_CHROME=true",
			"KEEP_ALIVE=true",
			"EXIT_ON_HEALTH_FAILURE=false",
		},
		ExposedPorts: nat.PortSet{
			cdpPort: struct{}{},
		},
	}
}

func NewDockerPool(chromium playwright.BrowserType, image string) (*DockerPool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerPool{
		client:   cli,
		chromium: chromium,
		image:    image,
	}, nil
}

func (p *DockerPool) Launch(ctx context.Context, opts LaunchOptions) (*Instance, error) {
	userDataDir := filepath.Join(os.TempDir(), "pwlab-browser-data", opts.SessionID)
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user data directory: %w", err)
	}

	containerConfig := sessionContainer(p.image, opts.SessionID)

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			cdpPort: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: "0",
				},
			},
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: userDataDir,
				Target: "/data",
			},
		},
	}

	resp, err := p.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "pwlab-session-"+obs.ShortID(opts.SessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[cdpPort]
	if len(bindings) == 0 {
		p.remove(resp.ID)
		return nil, fmt.Errorf("container %s exposes no CDP port", resp.ID[:12])
	}
	port := bindings[0].HostPort

	httpURL := fmt.Sprintf("http://localhost:%s", port)
	if err := waitForBrowserReady(ctx, httpURL+"/json/version", readyRetries, readyDelay); err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	b, err := p.chromium.ConnectOverCDP(httpURL)
	if err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to connect over CDP: %w", err)
	}

	return &Instance{
		SessionID:   opts.SessionID,
		Engine:      "chromium",
		Browser:     b,
		ContainerID: resp.ID,
		ConnectURL:  fmt.Sprintf("ws://localhost:%s", port),
		Port:        port,
	}, nil
}

func (p *DockerPool) Stop(ctx context.Context, inst *Instance) error {
	if inst.Browser != nil {
		if err := inst.Browser.Close(); err != nil {
			obs.Pkg("browser").Warn("closing CDP connection failed", "session_id", obs.ShortID(inst.SessionID), "error", err)
		}
	}

	timeout := 10
	if err := p.client.ContainerStop(ctx, inst.ContainerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := p.client.ContainerRemove(ctx, inst.ContainerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	return nil
}

// IsHealthy reports whether the session's container is still running.
func (p *DockerPool) IsHealthy(ctx context.Context, containerID string) bool {
	inspect, err := p.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return false
	}
	return inspect.State.Running
}

// EnsureImage pulls the browser image unless it is already present.
func (p *DockerPool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == p.image {
				return nil
			}
		}
	}

	reader, err := p.client.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (p *DockerPool) Close() error {
	return p.client.Close()
}

func (p *DockerPool) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		obs.Pkg("browser").Warn("removing failed container", "container_id", containerID, "error", err)
	}
}

// waitForBrowserReady polls the DevTools version endpoint until it answers 200.
func waitForBrowserReady(ctx context.Context, versionURL string, retries int, delay time.Duration) error {
	for i := 0; i < retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				// The websocket endpoint lags slightly behind the HTTP one.
				return sleepCtx(ctx, delay)
			}
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("browser did not become ready after %d retries", retries)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
