package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/renameio"
)

var (
	errInvalidName = errors.New("cannot derive a file name from the URL")
	errNoFile      = errors.New("destination file missing after transfer")
)

// HTTPFetcher downloads over net/http. Progress is rendered to Progress when set.
type HTTPFetcher struct {
	Client   *http.Client
	Timeout  time.Duration // zero means no timeout
	Progress io.Writer
}

// NewHTTPFetcher constructs a fetcher with a dial timeout but no overall
// client timeout; the transfer deadline comes from the context.
func NewHTTPFetcher(timeout time.Duration, progress io.Writer) *HTTPFetcher {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}
	return &HTTPFetcher{Client: &http.Client{Transport: tr}, Timeout: timeout, Progress: progress}
}

// Fetch streams rawURL into dest. An existing dest is replaced only by a
// complete transfer; on failure it is left untouched.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	// dest is replaced only after the whole body is on disk.
	out, err := renameio.TempFile(filepath.Dir(dest), dest)
	if err != nil {
		return err
	}
	defer func() { _ = out.Cleanup() }()
	if err := out.Chmod(0o644); err != nil {
		return err
	}

	var body io.Reader = resp.Body
	var bar *pb.ProgressBar
	if f.Progress != nil {
		bar = pb.New64(resp.ContentLength)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(f.Progress)
		bar.Start()
		body = bar.NewProxyReader(resp.Body)
	}
	_, err = io.Copy(out, body)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	return out.CloseAtomicallyReplace()
}
