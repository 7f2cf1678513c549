package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notegraph/internal/storage"
)

const maxAssetSize = 10 << 20 // 10 MB

// assetTypes maps the extensions upload_asset accepts to their MIME type.
var assetTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
}

type uploadResult struct {
	Filename      string `json:"filename"`
	URL           string `json:"url"`
	Size          string `json:"size"`
	MarkdownImage string `json:"markdownImage"`
}

// asset is a file loaded from a URL or data URI.
type asset struct {
	source string
	mime   string
	data   []byte
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := loadAsset(ctx, src)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = a.fileName()
	}
	name = storage.CleanAttachmentName(name)
	if err := checkAsset(name, a.data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Names are shared with API uploads; a taken name gets a prefix.
	stored, err := s.files.Save(name, a.data, false)
	if err != nil {
		return s.toolError("upload_asset", err), nil
	}
	size := humanize.Bytes(uint64(len(a.data)))
	s.logger.Info("asset uploaded", slog.String("file", stored), slog.String("size", size))

	link := storage.AttachmentURL(stored)
	return jsonResult(uploadResult{
		Filename:      stored,
		URL:           link,
		Size:          size,
		MarkdownImage: fmt.Sprintf("![%s](%s)", stored, link),
	}), nil
}

func loadAsset(ctx context.Context, src string) (*asset, error) {
	var (
		a   *asset
		err error
	)
	if strings.HasPrefix(src, "data:") {
		a, err = decodeDataURI(src)
	} else {
		a, err = download(ctx, src)
	}
	if err != nil {
		return nil, err
	}
	if len(a.data) > maxAssetSize {
		return nil, fmt.Errorf("file too large: %s (max %s)",
			humanize.Bytes(uint64(len(a.data))), humanize.Bytes(maxAssetSize))
	}
	return a, nil
}

// fileName takes the last element of a URL path when it has an extension,
// otherwise a random name with the extension of the asset's MIME type.
func (a *asset) fileName() string {
	if u, err := url.Parse(a.source); err == nil && u.Scheme != "data" {
		if base := path.Base(u.Path); strings.Contains(base, ".") {
			return base
		}
	}
	ext := ".bin"
	if a.mime == "image/jpeg" {
		ext = ".jpg"
	} else {
		for e, m := range assetTypes {
			if m == a.mime {
				ext = e
			}
		}
	}
	return uuid.NewString() + ext
}

// decodeDataURI reads a data:<mime>;base64,<data> URI.
func decodeDataURI(uri string) (*asset, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("invalid data URI: missing comma separator")
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, errors.New("only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	mime, _, _ = strings.Cut(mime, ";")
	return &asset{source: uri, mime: mime, data: data}, nil
}

// download fetches an http(s) URL. Loopback, link-local and cloud metadata
// hosts are refused, also when reached through a redirect.
func download(ctx context.Context, src string) (*asset, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q (only http/https)", u.Scheme)
	}
	if err := checkHost(u.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return checkHost(req.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	mime, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return &asset{source: src, mime: strings.TrimSpace(mime), data: data}, nil
}

func checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			// Resolution errors surface from the request itself.
			return nil
		}
		ip = ips[0]
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// checkAsset accepts data when the extension of name is a known asset type
// and the content looks like that type.
func checkAsset(name string, data []byte) error {
	ext := strings.ToLower(path.Ext(name))
	want, ok := assetTypes[ext]
	if !ok {
		return fmt.Errorf("unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)
	}
	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return errors.New("content is not an SVG image")
		}
		return nil
	}
	got, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if got != want {
		return fmt.Errorf("content does not match extension %s (detected %s)", ext, got)
	}
	return nil
}
