package httpclient

import (
	"compress/gzip"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
)

// decodeBody undoes the response's content encoding and converts a declared
// charset to UTF-8. Bodies without a charset parameter pass through as is.
// The closer releases decoder resources and must be closed by the caller.
func decodeBody(r io.Reader, header http.Header) (io.Reader, io.Closer, error) {
	decoded, err := decodeContent(r, header.Get("Content-Encoding"))
	if err != nil {
		return nil, nil, err
	}
	utf8, err := toUTF8(decoded, header.Get("Content-Type"))
	if err != nil {
		_ = decoded.Close()
		return nil, nil, err
	}
	return utf8, decoded, nil
}

func decodeContent(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(r)), nil
	case "zstd":
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%s encoding not supported", encoding)
	}
}

func toUTF8(r io.Reader, contentType string) (io.Reader, error) {
	if contentType == "" {
		return r, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}
	label := strings.ToLower(params["charset"])
	if label == "" || label == "utf-8" || label == "utf8" {
		return r, nil
	}
	cr, err := charset.NewReaderLabel(label, r)
	if err != nil {
		return nil, fmt.Errorf("charset %s: %w", label, err)
	}
	return cr, nil
}
