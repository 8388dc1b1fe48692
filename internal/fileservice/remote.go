package fileservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"log/slog"

	"pictor/internal/config"
	"pictor/internal/logging"
)

// remoteService polls another instance's listing endpoint over HTTP.
// Change detection diffs each listing against the previously known set;
// inotify does not travel across the network.
type remoteService struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *http.Client
	baseURL  string
	interval time.Duration

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRemoteService(cfg *config.Config, logger *slog.Logger) *remoteService {
	return &remoteService{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "fileservice"),
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(cfg.FileService.RemoteURL, "/"),
		interval: time.Duration(cfg.FileService.PollIntervalSeconds) * time.Second,
	}
}

func (s *remoteService) Watch(ctx context.Context, dir string, fn EventFunc) error {
	// A second Watch replaces the first: stop the previous poll loop
	// before starting over.
	s.stopWatch()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("remote file service closed")
	}
	s.cancel = cancel
	s.mu.Unlock()

	known := make(map[string]FileInfo)
	if listing, err := s.List(ctx, dir); err == nil {
		for i := range listing {
			known[listing[i].Name] = listing[i]
		}
	} else {
		s.logger.Warn("initial remote listing failed",
			logging.String("url", s.baseURL), logging.Error(err))
	}

	s.logger.Info("polling remote listing",
		logging.String("url", s.baseURL),
		logging.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				listing, err := s.List(ctx, dir)
				if err != nil {
					// Transient by definition; keep polling.
					s.logger.Warn("remote listing failed",
						logging.String("url", s.baseURL), logging.Error(err))
					continue
				}
				known = diffListings(known, listing, fn)
			}
		}
	}()
	return nil
}

type remoteListing struct {
	Images []remoteImage `json:"images"`
}

type remoteImage struct {
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
}

func (s *remoteService) List(ctx context.Context, dir string) ([]FileInfo, error) {
	endpoint := s.baseURL + "/api/files/list"
	if dir != "" {
		endpoint += "?" + url.Values{"subdir": {dir}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote listing returned %s", resp.Status)
	}

	var listing remoteListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode remote listing: %w", err)
	}

	infos := make([]FileInfo, 0, len(listing.Images))
	for _, img := range listing.Images {
		if !s.cfg.ImageExtension(img.Filename) {
			continue
		}
		infos = append(infos, FileInfo{
			Name:     img.Filename,
			Path:     img.Filename,
			Size:     img.Size,
			Modified: img.Modified,
		})
	}
	return infos, nil
}

// stopWatch cancels the active poll loop and waits for it to exit.
func (s *remoteService) stopWatch() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *remoteService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopWatch()
	return nil
}
