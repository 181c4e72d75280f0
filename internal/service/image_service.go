package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"yatube/internal/config"
	"yatube/internal/middleware"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 5
	MasterMaxSize               = 2048
	JPEGQuality                 = 82
	WebPQuality                 = 70

	// PostImageDir is the media subdirectory post images are written to.
	PostImageDir = "posts"
)

// ErrInvalidImage is the form message for anything that does not decode as an image.
var ErrInvalidImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

// UploadImageInput is one uploaded file.
type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageStore persists post images under the media root.
type ImageStore interface {
	Store(ctx context.Context, in UploadImageInput) (string, error)
	Remove(rel string)
}

// ImageService normalises uploads into a JPEG master plus a WebP rendition.
type ImageService struct {
	mediaRoot          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaRoot := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaRoot != "" {
			mediaRoot = cfg.MediaRoot
		}
		if cfg.MediaMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.MediaMaxUploadMB
		}
	}

	return &ImageService{
		mediaRoot:          mediaRoot,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaRoot is the directory served under /media/.
func (s *ImageService) MediaRoot() string {
	return s.mediaRoot
}

// Store validates and writes an upload, returning the JPEG path relative to
// the media root ("posts/<id>.jpg"). The WebP rendition sits next to it.
// Validation failures are returned as ErrInvalidImage or a size message.
func (s *ImageService) Store(_ context.Context, in UploadImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", errors.New("The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", fmt.Errorf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", ErrInvalidImage
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", ErrInvalidImage
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", ErrInvalidImage
	}

	master := flatten(resizeToFit(decoded, MasterMaxSize, MasterMaxSize))

	encodedJPG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return "", &storeError{err}
	}
	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return "", &storeError{err}
	}

	name := uuid.NewString()
	jpgRel := path.Join(PostImageDir, name+".jpg")
	webpRel := path.Join(PostImageDir, name+".webp")
	jpgAbs := filepath.Join(s.mediaRoot, filepath.FromSlash(jpgRel))
	webpAbs := filepath.Join(s.mediaRoot, filepath.FromSlash(webpRel))

	if err := writeBytesToFile(jpgAbs, encodedJPG); err != nil {
		return "", &storeError{err}
	}
	if err := writeBytesToFile(webpAbs, encodedWebP); err != nil {
		cleanupImageFiles([]string{jpgAbs})
		return "", &storeError{err}
	}
	return jpgRel, nil
}

// Remove deletes a stored image and its WebP rendition. Missing files are ignored.
func (s *ImageService) Remove(rel string) {
	if rel == "" || !isSafeMediaPath(rel) {
		return
	}
	paths := []string{filepath.Join(s.mediaRoot, filepath.FromSlash(rel))}
	if strings.HasSuffix(rel, ".jpg") {
		paths = append(paths, filepath.Join(s.mediaRoot, filepath.FromSlash(strings.TrimSuffix(rel, ".jpg")+".webp")))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			middleware.Logger.Warn("failed to remove media file", "path", p, "error", err)
		}
	}
}

// storeError marks a server-side failure, as opposed to a bad upload.
type storeError struct{ err error }

func (e *storeError) Error() string { return "store image: " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// IsUploadRejection reports whether err describes a bad upload rather
// than a failure to store a good one.
func IsUploadRejection(err error) bool {
	var se *storeError
	return err != nil && !errors.As(err, &se)
}

func isSafeMediaPath(rel string) bool {
	clean := path.Clean(rel)
	return clean == rel && !strings.HasPrefix(clean, "/") && !strings.HasPrefix(clean, "..")
}

// flatten composites src over white so transparent areas survive JPEG encoding.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
