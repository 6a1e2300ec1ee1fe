// Package amo is the add-on signing service client: it uploads language
// packs for validation, creates versions for signing, polls for the
// signed result, and downloads it. All calls are plain REST; the token
// plumbing and the decision of what to sign live with the caller.
package amo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Client talks to one signing service deployment.
type Client struct {
	// BaseURL is prepended to all request paths. Must not have a
	// trailing slash.
	BaseURL string

	// Authorization is sent verbatim as the Authorization header. Token
	// issuance is the deployment's concern, not this client's.
	Authorization string

	// HTTP is the underlying http.Client. If nil, http.DefaultClient is
	// used.
	HTTP *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	target := path
	if !strings.Contains(path, "://") {
		target = c.BaseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	// Signed downloads may point at another host; the session token is
	// only ever sent to the service itself.
	if c.Authorization != "" && c.sameHost(req.URL) {
		req.Header.Set("Authorization", c.Authorization)
	}
	return c.httpClient().Do(req)
}

func (c *Client) sameHost(u *url.URL) bool {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	return u.Host == base.Host
}

// doJSON issues a request and decodes a 2xx JSON response into out.
// Non-2xx responses become *APIError (or *ConflictError for 409).
func (c *Client) doJSON(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	resp, err := c.do(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ConflictError{Detail: string(detail)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(detail)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Upload is the service's record of an uploaded archive.
type Upload struct {
	UUID      string `json:"uuid"`
	Processed bool   `json:"processed"`
	Valid     bool   `json:"valid"`
}

// UploadXPI submits an archive for validation on the given channel and
// returns the upload record to poll.
func (c *Client) UploadXPI(ctx context.Context, path, channel string) (Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("upload", filepath.Base(path))
	if err != nil {
		return Upload{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return Upload{}, err
	}
	if err := w.WriteField("channel", channel); err != nil {
		return Upload{}, err
	}
	if err := w.Close(); err != nil {
		return Upload{}, err
	}

	var up Upload
	err = c.doJSON(ctx, http.MethodPost, "/api/v5/addons/upload/", w.FormDataContentType(), &buf, &up)
	if err != nil {
		return Upload{}, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	return up, nil
}

// CheckUpload polls an upload until validation has run. It fails with
// *SignatureError while processing is still pending, and with *APIError
// once the service declares the archive invalid.
func (c *Client) CheckUpload(ctx context.Context, uuid string) error {
	var up Upload
	err := c.doJSON(ctx, http.MethodGet, "/api/v5/addons/upload/"+url.PathEscape(uuid)+"/", "", nil, &up)
	if err != nil {
		return fmt.Errorf("check upload %s: %w", uuid, err)
	}
	if !up.Processed {
		return &SignatureError{Detail: fmt.Sprintf("upload %s still processing", uuid)}
	}
	if !up.Valid {
		return &APIError{StatusCode: http.StatusBadRequest, Body: fmt.Sprintf("upload %s failed validation", uuid)}
	}
	return nil
}

// Version is a created add-on version awaiting signing.
type Version struct {
	ID int64 `json:"id"`
}

// CreateVersion asks the service to create a version for the uploaded
// archive. A *ConflictError means the version already exists; callers
// treat that as success with no new id.
func (c *Client) CreateVersion(ctx context.Context, addonID, uploadUUID string) (Version, error) {
	body, err := json.Marshal(map[string]string{"upload": uploadUUID})
	if err != nil {
		return Version{}, err
	}

	var v Version
	err = c.doJSON(ctx, http.MethodPost, "/api/v5/addons/addon/"+url.PathEscape(addonID)+"/versions/", "application/json", bytes.NewReader(body), &v)
	if err != nil {
		return Version{}, err
	}
	return v, nil
}

// SignedInfo locates a signed build of one version.
type SignedInfo struct {
	DownloadURL string
	Hash        string
}

type versionDetail struct {
	File struct {
		Status string `json:"status"`
		URL    string `json:"url"`
		Hash   string `json:"hash"`
	} `json:"file"`
}

// SignedAddonInfo polls a version for its signed file. It fails with
// *SignatureError until the file reaches public status, making it safe
// to drive with Retry.
func (c *Client) SignedAddonInfo(ctx context.Context, addonID, version string) (SignedInfo, error) {
	var detail versionDetail
	path := "/api/v5/addons/addon/" + url.PathEscape(addonID) + "/versions/" + url.PathEscape(version) + "/"
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &detail); err != nil {
		return SignedInfo{}, fmt.Errorf("signed info %s %s: %w", addonID, version, err)
	}
	if detail.File.Status != "public" || detail.File.URL == "" {
		return SignedInfo{}, &SignatureError{Detail: fmt.Sprintf("%s %s not signed yet (status %q)", addonID, version, detail.File.Status)}
	}
	return SignedInfo{DownloadURL: detail.File.URL, Hash: detail.File.Hash}, nil
}

// DownloadSignedXPI fetches a signed archive to dest, creating parent
// directories as needed.
func (c *Client) DownloadSignedXPI(ctx context.Context, info SignedInfo, dest string) error {
	resp, err := c.do(ctx, http.MethodGet, info.DownloadURL, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: "signed xpi download failed"}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AddAppVersion registers an application version with the service so
// langpacks may target it. Conflicts mean the version already exists
// and are not failures.
func (c *Client) AddAppVersion(ctx context.Context, app, version string) error {
	path := "/api/v5/applications/" + url.PathEscape(app) + "/" + url.PathEscape(version) + "/"
	err := c.doJSON(ctx, http.MethodPut, path, "", nil, nil)
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}
