package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// HTTPStore adds blobs through the HTTP API of an IPFS node
type HTTPStore struct {
	apiURL     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPStore creates a store backed by the node at apiURL
func NewHTTPStore(apiURL string, log *slog.Logger) *HTTPStore {
	return &HTTPStore{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Put adds and pins blob, returning the CID the node answered and its CIDv1 binary form
func (s *HTTPStore) Put(ctx context.Context, blob []byte) (models.ContentDigest, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "metadata.json")
	if err != nil {
		return models.ContentDigest{}, err
	}
	if _, err := part.Write(blob); err != nil {
		return models.ContentDigest{}, err
	}
	if err := form.Close(); err != nil {
		return models.ContentDigest{}, err
	}

	url := s.apiURL + "/api/v0/add?cid-version=0&pin=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return models.ContentDigest{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.ContentDigest{}, fmt.Errorf("ipfs add failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ContentDigest{}, fmt.Errorf("ipfs add failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return models.ContentDigest{}, fmt.Errorf("failed to decode ipfs response: %w", err)
	}
	bin, err := binaryV1(added.Hash)
	if err != nil {
		return models.ContentDigest{}, err
	}

	s.log.Debug("content added to ipfs", "cid", added.Hash, "size", added.Size)
	return models.ContentDigest{CID: added.Hash, Binary: bin}, nil
}

var _ usecase.ContentStore = (*HTTPStore)(nil)
