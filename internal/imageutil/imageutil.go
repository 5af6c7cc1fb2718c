// Package imageutil validates and shrinks uploaded images before they are
// forwarded to the backend.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"strings"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/dukerupert/smartshop/internal/errors"
)

const (
	// MaxSize is the largest accepted upload.
	MaxSize = 5 << 20
	// MaxWidth is the width images are scaled down to.
	MaxWidth = 800
	// Quality is the JPEG quality of the re-encoded image.
	Quality = 80
	// MaxPixels caps the declared dimensions an upload may decode to.
	MaxPixels = 40_000_000

	blurHashSize = 64
)

// AllowedTypes are the accepted upload content types.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const (
	msgInvalidType = "Tipo de arquivo inválido. Use JPEG, PNG, GIF ou WebP."
	msgTooLarge    = "Arquivo muito grande. Tamanho máximo: 5MB."
	msgUnreadable  = "Erro ao processar imagem. Tente novamente."
	msgTooManyPx   = "Imagem com dimensões muito grandes."
)

// Validate checks an upload's type and size.
func Validate(contentType string, size int64) error {
	ct, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	allowed := false
	for _, t := range AllowedTypes {
		if ct == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Validation(msgInvalidType, nil)
	}
	if size > MaxSize {
		return errors.Validation(msgTooLarge, nil)
	}
	return nil
}

// Result is a compressed image.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	BlurHash    string
}

// Compress decodes r, scales it down to MaxWidth keeping the aspect ratio
// and re-encodes it as JPEG. Narrower images keep their size. Images whose
// header declares more than MaxPixels are rejected before decoding.
func Compress(r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(raw) > MaxSize {
		return nil, errors.Validation(msgTooLarge, nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Validation(msgUnreadable, nil).WithCause(err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, errors.Validation(msgTooManyPx, nil)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Validation(msgUnreadable, nil).WithCause(err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxWidth {
		h = max(1, h*MaxWidth/w)
		w = MaxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(dst))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	return &Result{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       w,
		Height:      h,
		BlurHash:    hash,
	}, nil
}

// thumbnail shrinks img to fit blurHashSize on its longer side.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}
	if w > h {
		h = max(1, h*blurHashSize/w)
		w = blurHashSize
	} else {
		w = max(1, w*blurHashSize/h)
		h = blurHashSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DataURL renders data as an inline preview URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
