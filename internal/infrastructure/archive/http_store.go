package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"syncrun/pkg/config"
)

// UploadRequest describes one finished recording awaiting archival.
type UploadRequest struct {
	SessionID    string
	ArchivePath  string
	ContainerExt string
	AgentName    string
	AgentID      int
	Duration     time.Duration
	RecordedAt   time.Time
}

// Store uploads a finished archive to the external object store.
type Store interface {
	// Configured reports whether a site URL and bearer token were supplied.
	// Callers should skip the whole upload sequence when this is false.
	Configured() bool
	Upload(ctx context.Context, req UploadRequest) error
}

// HTTPStore implements Store against the object store's REST surface: an
// upload-URL issuance call, a direct upload to that URL, and a metadata
// registration call. It never retries — a failed upload is logged and
// dropped, per the archive's ephemeral, best-effort delivery contract.
type HTTPStore struct {
	siteURL     string
	bearerToken string
	client      *http.Client
	logger      *zap.SugaredLogger
}

var _ Store = (*HTTPStore)(nil)

func NewHTTPStore(cfg *config.Config, logger *zap.SugaredLogger) *HTTPStore {
	return &HTTPStore{
		siteURL:     cfg.Archive.SiteURL,
		bearerToken: cfg.Archive.BearerToken,
		client:      &http.Client{Timeout: cfg.Archive.HTTPTimeout},
		logger:      logger,
	}
}

func (s *HTTPStore) Configured() bool {
	return s.siteURL != "" && s.bearerToken != ""
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

type uploadResponse struct {
	StorageID string `json:"storageId"`
}

type saveRequest struct {
	StorageID  string `json:"storageId"`
	SessionID  string `json:"sessionId"`
	AgentName  string `json:"agentName"`
	AgentID    int    `json:"agentId"`
	Duration   int64  `json:"duration"`
	RecordedAt string `json:"recordedAt"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType"`
}

// Upload runs the three-call archival sequence documented for the external
// object store. If the store isn't configured it logs a warning and returns
// nil: an unconfigured archive backend is not an error condition.
func (s *HTTPStore) Upload(ctx context.Context, req UploadRequest) error {
	if !s.Configured() {
		s.logger.Warnw("archive store not configured, skipping upload",
			"agentId", req.AgentID, "sessionId", req.SessionID, "archivePath", req.ArchivePath)
		return nil
	}

	info, err := os.Stat(req.ArchivePath)
	if err != nil {
		return fmt.Errorf("stat archive file: %w", err)
	}

	uploadURL, err := s.requestUploadURL(ctx)
	if err != nil {
		return fmt.Errorf("request upload url: %w", err)
	}

	storageID, err := s.uploadFile(ctx, uploadURL, req.ArchivePath, req.ContainerExt)
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	if err := s.saveMetadata(ctx, saveRequest{
		StorageID:  storageID,
		SessionID:  req.SessionID,
		AgentName:  req.AgentName,
		AgentID:    req.AgentID,
		Duration:   int64(req.Duration.Seconds()),
		RecordedAt: req.RecordedAt.UTC().Format(time.RFC3339),
		FileSize:   info.Size(),
		MimeType:   "video/" + req.ContainerExt,
	}); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	return nil
}

func (s *HTTPStore) requestUploadURL(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.siteURL+"/api/vod/upload-url", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", err
	}
	s.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload-url request returned status %d", resp.StatusCode)
	}

	var out uploadURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload-url response: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload-url response missing uploadUrl")
	}
	return out.UploadURL, nil
}

func (s *HTTPStore) uploadFile(ctx context.Context, uploadURL, path, containerExt string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return "", err
	}
	s.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "video/"+containerExt)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload request returned status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.StorageID == "" {
		return "", fmt.Errorf("upload response missing storageId")
	}
	return out.StorageID, nil
}

func (s *HTTPStore) saveMetadata(ctx context.Context, body saveRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.siteURL+"/api/vod/save", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	s.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("save request returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPStore) authorize(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+s.bearerToken)
}
