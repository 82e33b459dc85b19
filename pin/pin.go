// Package pin is a client for a Pinata-style content pinning service.
//
// The service assigns the content hash; this client keeps it verbatim and
// never deduplicates. Repeated uploads of identical bytes MAY yield the
// same hash; that is a property of the remote store, not a guarantee made
// here. No idempotency key is sent.
package pin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"certledger.dev/certledger/contentref"
	"certledger.dev/certledger/model"
)

// Client talks to one pinning service account.
//
// Gateway is the fetch-by-hash URL prefix (e.g.
// "https://gateway.pinata.cloud/ipfs/"); the content URL for a hash is
// Gateway + hash.
type Client struct {
	APIURL  string
	Gateway string
	JWT     string

	// HTTPClient overrides http.DefaultClient when non-nil.
	HTTPClient *http.Client
}

// Metadata describes an upload for the service's pin index.
type Metadata struct {
	Name        string
	Description string
	Type        string
}

// PinnedFile is one entry of the service's pin listing.
type PinnedFile struct {
	IpfsHash   string `json:"ipfs_pin_hash"`
	Size       int64  `json:"size"`
	DatePinned string `json:"date_pinned"`
	Metadata   struct {
		Name string `json:"name"`
	} `json:"metadata"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// UploadFile pins data under the given display name and returns the content
// reference. The hash is taken verbatim from the service response.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte, meta Metadata) (model.ContentReference, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload body", err)
	}
	if _, err := fw.Write(data); err != nil {
		return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload body", err)
	}

	if meta.Name != "" || meta.Description != "" {
		typ := meta.Type
		if typ == "" {
			typ = "certificate"
		}
		mdName := meta.Name
		if mdName == "" {
			mdName = name
		}
		md := map[string]any{
			"name": mdName,
			"keyvalues": map[string]string{
				"description": meta.Description,
				"type":        typ,
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			},
		}
		mdBytes, merr := json.Marshal(md)
		if merr != nil {
			return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload metadata", merr)
		}
		if werr := mw.WriteField("pinataMetadata", string(mdBytes)); werr != nil {
			return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload body", werr)
		}
	}
	if err := mw.Close(); err != nil {
		return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build upload request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return model.ContentReference{}, model.WrapError(model.KindUpload, "CERT-UP-002", "pinning service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ContentReference{}, serviceRejection(resp)
	}

	var reply struct {
		IpfsHash  string `json:"IpfsHash"`
		PinSize   int64  `json:"PinSize"`
		Timestamp string `json:"Timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return model.ContentReference{}, model.WrapError(model.KindUpload, "CERT-UP-001", "malformed pinning response", err)
	}
	if reply.IpfsHash == "" {
		return model.ContentReference{}, model.NewError(model.KindUpload, "CERT-UP-001", "pinning response carries no hash")
	}

	pinnedAt, perr := time.Parse(time.RFC3339, reply.Timestamp)
	if perr != nil {
		pinnedAt = time.Now().UTC()
	}
	return model.ContentReference{
		Hash:      reply.IpfsHash,
		URL:       c.GatewayURL(reply.IpfsHash),
		SizeBytes: reply.PinSize,
		PinnedAt:  pinnedAt,
	}, nil
}

// UploadJSON pins v as an indented JSON document.
func (c *Client) UploadJSON(ctx context.Context, v any, fileName string) (model.ContentReference, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.ContentReference{}, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot marshal JSON upload", err)
	}
	return c.UploadFile(ctx, fileName, b, Metadata{})
}

// Fetch retrieves pinned bytes through the gateway and, when the hash is a
// raw CID, verifies them against it.
func (c *Client) Fetch(ctx context.Context, hash string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GatewayURL(hash), nil)
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build fetch request", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, model.WrapError(model.KindUpload, "CERT-UP-002", "gateway unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serviceRejection(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.WrapError(model.KindUpload, "CERT-UP-002", "gateway read failed", err)
	}
	if err := contentref.Verify(b, hash); err != nil {
		return nil, err
	}
	return b, nil
}

// TestAuthentication checks the configured credentials against the service.
func (c *Client) TestAuthentication(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/data/testAuthentication", nil)
	if err != nil {
		return "", model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build auth request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", model.WrapError(model.KindUpload, "CERT-UP-002", "pinning service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return "", model.NewError(model.KindUpload, "CERT-UP-004", "invalid pinning service token")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serviceRejection(resp)
	}
	var reply struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", model.WrapError(model.KindUpload, "CERT-UP-001", "malformed auth response", err)
	}
	return reply.Message, nil
}

// ListPinned returns up to limit pinned entries.
func (c *Client) ListPinned(ctx context.Context, limit int) ([]PinnedFile, error) {
	if limit <= 0 {
		limit = 10
	}
	url := c.APIURL + "/data/pinList?status=pinned&pageLimit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build list request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, model.WrapError(model.KindUpload, "CERT-UP-002", "pinning service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serviceRejection(resp)
	}
	var reply struct {
		Rows []PinnedFile `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, model.WrapError(model.KindUpload, "CERT-UP-001", "malformed pin listing", err)
	}
	return reply.Rows, nil
}

// Unpin removes the pin for hash. The bytes may remain retrievable until
// the service garbage-collects them.
func (c *Client) Unpin(ctx context.Context, hash string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.APIURL+"/pinning/unpin/"+hash, nil)
	if err != nil {
		return model.WrapError(model.KindInternal, "CERT-UP-003", "cannot build unpin request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return model.WrapError(model.KindUpload, "CERT-UP-002", "pinning service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceRejection(resp)
	}
	return nil
}

// GatewayURL is the fetch URL for a pinned hash.
func (c *Client) GatewayURL(hash string) string {
	return c.Gateway + hash
}

// serviceRejection builds the Upload error for a non-success response,
// preserving the service's own error detail when the body carries one.
func serviceRejection(resp *http.Response) error {
	detail := resp.Status
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var reply struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err == nil && reply.Error != nil {
		switch e := reply.Error.(type) {
		case string:
			detail = e
		default:
			detail = fmt.Sprintf("%v", e)
		}
	}
	return model.NewError(model.KindUpload, "CERT-UP-001", "pinning service rejected request: "+detail)
}
