// Package uploads manages the on-disk upload tree. Every user owns a subtree
// uploads/<userID>/ with files/ for main attachments and previews/ for preview
// images. Files are addressed by their public path (/uploads/...), which is
// also what gets stored on posts and served over HTTP.
package uploads

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// PublicPrefix is the URL prefix under which uploaded files are served.
const PublicPrefix = "/uploads/"

// Slot identifies the multipart field a file arrived in and selects its
// destination directory.
type Slot string

const (
	SlotMainFile     Slot = "mainFile"
	SlotPreviewImage Slot = "previewImageFile"
)

// dir returns the per-user subdirectory for the slot.
func (s Slot) dir() string {
	if s == SlotPreviewImage {
		return "previews"
	}
	return "files"
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Manager writes, resolves and deletes uploaded files under a single root.
type Manager struct {
	root string
}

// New creates a manager rooted at root, creating the directory if needed.
func New(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the filesystem root of the upload tree.
func (m *Manager) Root() string {
	return m.root
}

// EnsureUserDirs creates the files/ and previews/ directories for a user.
// Called at registration so a fresh user always has a valid tree.
func (m *Manager) EnsureUserDirs(userID string) error {
	for _, slot := range []Slot{SlotMainFile, SlotPreviewImage} {
		if err := os.MkdirAll(filepath.Join(m.root, userID, slot.dir()), 0o755); err != nil {
			return fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return nil
}

// Save streams r into a freshly named file in the user's slot directory and
// returns the public path to store on the post. The generated name combines a
// timestamp, a random suffix and a sanitized copy of the original name, so
// concurrent uploads can't collide and the original name can't inject path
// elements.
func (m *Manager) Save(userID string, slot Slot, originalName string, r io.Reader) (string, error) {
	dir := filepath.Join(m.root, userID, slot.dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := GenerateFilename(originalName)
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path.Join(PublicPrefix, userID, slot.dir(), name), nil
}

// GenerateFilename builds a collision-resistant filename from an original
// upload name: "<unix-millis>-<rand>-<sanitized>". Everything outside
// [a-zA-Z0-9._-] is stripped from the original name.
func GenerateFilename(originalName string) string {
	sanitized := unsafeChars.ReplaceAllString(filepath.Base(originalName), "")
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}
	return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), rand.Int63n(1_000_000_000), sanitized)
}

// DiskPath resolves a public /uploads/... path to an absolute path inside the
// upload root. Paths escaping the root are rejected.
func (m *Manager) DiskPath(publicPath string) (string, error) {
	rel, ok := strings.CutPrefix(publicPath, PublicPrefix)
	if !ok || strings.Contains(rel, "\x00") {
		return "", fmt.Errorf("not an upload path: %q", publicPath)
	}
	// Cleaning would silently fold ".." elements away; a path that does not
	// survive Clean unchanged is trying to escape and gets rejected instead.
	if rel == "" || path.Clean("/"+rel) != "/"+rel {
		return "", fmt.Errorf("upload path escapes root: %q", publicPath)
	}
	abs := filepath.Clean(filepath.Join(m.root, filepath.FromSlash(rel)))
	rootClean := filepath.Clean(m.root)
	if abs == rootClean || !strings.HasPrefix(abs, rootClean+string(filepath.Separator)) {
		return "", fmt.Errorf("upload path escapes root: %q", publicPath)
	}
	return abs, nil
}

// Remove deletes the file behind a public path. Removing a file that is
// already gone is not an error.
func (m *Manager) Remove(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	abs, err := m.DiskPath(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

// RemoveAll deletes a batch of public paths, logging and continuing on
// failure. Used to execute staged deletions after a document write committed.
func (m *Manager) RemoveAll(publicPaths []string) {
	for _, p := range publicPaths {
		if err := m.Remove(p); err != nil {
			log.Error("failed to delete uploaded file", "path", p, "error", err)
		}
	}
}

// RemoveUserTree deletes a user's entire upload subtree.
func (m *Manager) RemoveUserTree(userID string) error {
	if userID == "" || strings.ContainsAny(userID, `/\`) {
		return fmt.Errorf("invalid user id: %q", userID)
	}
	if err := os.RemoveAll(filepath.Join(m.root, userID)); err != nil {
		return fmt.Errorf("failed to delete user uploads: %w", err)
	}
	return nil
}
