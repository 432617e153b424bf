package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrNotAnImage is returned when a preview upload can't be decoded as an image.
var ErrNotAnImage = errors.New("uploads: preview is not a decodable image")

// maxPreviewWidth bounds stored preview images. Cards in the frontend render
// at 300px wide, so anything wider than this is wasted bytes.
const maxPreviewWidth = 640

// SavePreviewImage decodes a preview upload, downscales it to at most
// maxPreviewWidth and stores the re-encoded result in the user's previews
// directory. The output format follows the original extension, falling back
// to JPEG for unknown ones.
func (m *Manager) SavePreviewImage(userID, originalName string, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	if img.Bounds().Dx() > maxPreviewWidth {
		img = imaging.Resize(img, maxPreviewWidth, 0, imaging.Lanczos)
	}

	format, opts := encodingFor(originalName)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return "", fmt.Errorf("failed to encode preview image: %w", err)
	}
	return m.Save(userID, SlotPreviewImage, originalName, &buf)
}

func encodingFor(name string) (imaging.Format, []imaging.EncodeOption) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return imaging.PNG, []imaging.EncodeOption{imaging.PNGCompressionLevel(6)}
	case ".gif":
		return imaging.GIF, nil
	default:
		return imaging.JPEG, []imaging.EncodeOption{imaging.JPEGQuality(85)}
	}
}
