package platforms

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Storage re-hosts media bytes and returns a public URL. Implemented by the
// R2 storage service.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// fetchMedia downloads the source asset and validates its size and detected
// type against the platform limits before anything touches the network again.
func fetchMedia(ctx context.Context, client doer, p Platform, media Media) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.SourceURL, nil)
	if err != nil {
		return nil, "", apiError(p, "upload_media", 0, err.Error())
	}

	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", apiError(p, "upload_media", 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", apiError(p, "upload_media", resp.StatusCode, "failed to fetch source media")
	}

	lim := LimitsFor(p)
	reader := io.Reader(resp.Body)
	if lim.MaxMediaBytes > 0 {
		reader = io.LimitReader(resp.Body, lim.MaxMediaBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", apiError(p, "upload_media", 0, err.Error())
	}
	if lim.MaxMediaBytes > 0 && int64(len(data)) > lim.MaxMediaBytes {
		return nil, "", apiError(p, "upload_media", 0,
			fmt.Sprintf("media exceeds the %d byte limit", lim.MaxMediaBytes))
	}

	contentType := media.ContentType
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}
	if contentType == "" {
		return nil, "", apiError(p, "upload_media", 0, "could not detect media type")
	}

	return data, contentType, nil
}

// rehostMedia fetches, validates and re-uploads the asset, returning the new
// public URL.
func rehostMedia(ctx context.Context, client doer, store Storage, p Platform, media Media) (string, error) {
	data, contentType, err := fetchMedia(ctx, client, p, media)
	if err != nil {
		return "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", apiError(p, "upload_media", 0, err.Error())
	}

	key := fmt.Sprintf("media/%s/%s", p, id)
	publicURL, err := store.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", apiError(p, "upload_media", 0, err.Error())
	}
	return publicURL, nil
}
