package processor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"thmlconverter/config"

	// formats the source corpus is known to contain
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageRef ties an output img element to its source reference. References
// are collected during descent and resolved by the processor afterwards, the
// engine itself performs no network or disk access.
type ImageRef struct {
	node *etree.Element
	src  string
}

// imageFetcher returns byte content for an image reference.
type imageFetcher interface {
	fetch(ref string) ([]byte, error)
}

// httpFetcher retrieves images over HTTP with an optional base URL for
// relative references and an optional on-disk cache.
type httpFetcher struct {
	client   *http.Client
	baseURL  string
	cacheDir string
}

func newImageFetcher(cfg config.Images) *httpFetcher {

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpFetcher{
		client:   &http.Client{Timeout: timeout},
		baseURL:  cfg.BaseURL,
		cacheDir: cfg.CacheDir,
	}
}

func (f *httpFetcher) fetch(ref string) ([]byte, error) {

	loc := ref
	if len(f.baseURL) > 0 {
		b, err := url.Parse(f.baseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "bad image base URL: %s", f.baseURL)
		}
		r, err := url.Parse(ref)
		if err != nil {
			return nil, errors.Wrapf(err, "bad image reference: %s", ref)
		}
		loc = b.ResolveReference(r).String()
	}
	if !govalidator.IsRequestURL(loc) {
		return nil, errors.Errorf("image reference is not a fetchable URL: %s", loc)
	}

	var cname string
	if len(f.cacheDir) > 0 {
		cname = filepath.Join(f.cacheDir, uuid.NewSHA1(uuid.NameSpaceURL, []byte(loc)).String())
		if data, err := os.ReadFile(cname); err == nil {
			return data, nil
		}
	}

	resp, err := f.client.Get(loc)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch image: %s", loc)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unable to fetch image: %s (%s)", loc, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read image: %s", loc)
	}

	if len(cname) > 0 {
		if err := os.MkdirAll(f.cacheDir, 0700); err == nil {
			_ = os.WriteFile(cname, data, 0644)
		}
	}
	return data, nil
}

// fetchImages resolves all collected image references, rewriting each img
// src to a stable relative name inside the book. Failed references keep
// their original src and are dropped from the manifest with a warning.
func (p *Processor) fetchImages() error {

	if len(p.images) == 0 {
		return nil
	}

	count := 0
	for _, ref := range p.images {

		data, err := p.fetcher.fetch(ref.src)
		if err != nil {
			p.env.Log.Warn("Dropping image", zap.String("src", ref.src), zap.Error(err))
			p.env.Rpt.Add(rptImageDropped, ref.src)
			continue
		}

		kind, err := filetype.Match(data)
		if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
			p.env.Log.Warn("Dropping image of unsupported type", zap.String("src", ref.src))
			p.env.Rpt.Add(rptImageDropped, ref.src)
			continue
		}

		if limit := p.env.Cfg.Doc.Images.MaxDimension; limit > 0 {
			if scaled, ok := downscaleImage(data, kind.Extension, limit); ok {
				p.env.Log.Debug("Image downscaled",
					zap.String("src", ref.src), zap.Int("limit", limit))
				data = scaled
			}
		}

		count++
		fname := fmt.Sprintf("images/img%04d.%s", count, kind.Extension)
		ref.node.CreateAttr("src", fname)

		p.book = append(p.book, &dataFile{
			id:        fmt.Sprintf("image%d", count),
			fname:     path.Join(DirContent, fname),
			ct:        kind.MIME.Value,
			data:      data,
			transient: dataNotForSpine,
		})
	}
	return nil
}

// downscaleImage reduces images with either dimension over the limit,
// preserving aspect ratio and format. Anything that cannot be decoded or
// re-encoded is kept as is.
func downscaleImage(data []byte, ext string, limit int) ([]byte, bool) {

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, false
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return nil, false
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, limit, limit, imaging.Lanczos), format); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
