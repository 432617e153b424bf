package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vibeboard/vibeboard/api/auth"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

// CreatePost handles POST /api/me/subpages/:subpageId/posts (multipart).
// Title and description are required; url, mainFile and previewImageFile are
// all optional and any combination may be supplied.
func (h *Handler) CreatePost(c *gin.Context) {
	identity := auth.Identity(c)
	subpageID := c.Param("subpageId")

	title := c.PostForm("title")
	description := c.PostForm("description")
	url := c.PostForm("url")
	if title == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title and description are required."})
		return
	}

	mainPath, err := h.formUpload(c, identity.UserID, uploads.SlotMainFile)
	if err != nil {
		log.Error("failed to store uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error storing uploaded file."})
		return
	}
	previewPath, err := h.formUpload(c, identity.UserID, uploads.SlotPreviewImage)
	if err != nil {
		h.uploads.RemoveAll(paths(mainPath))
		if errors.Is(err, uploads.ErrNotAnImage) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Preview must be an image file."})
			return
		}
		log.Error("failed to store preview image", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error storing uploaded file."})
		return
	}

	post := &store.Post{
		ID:           "post-" + uuid.NewString(),
		Title:        title,
		Description:  description,
		PreviewImage: previewPath,
		FilePath:     mainPath,
		URL:          optString(url),
	}
	var created *store.Post
	err = h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		user, ok := doc.UserByID(identity.UserID)
		if !ok {
			return store.ErrNotFound
		}
		subpage, ok := user.SubpageByID(subpageID)
		if !ok {
			return store.ErrNotFound
		}
		subpage.Posts = append(subpage.Posts, post)
		created = post.Clone()
		return nil
	})
	if err != nil {
		// The files were saved before the record existed. Undo.
		h.uploads.RemoveAll(paths(mainPath, previewPath))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Subpage not found."})
			return
		}
		log.Error("failed to create post", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating post."})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdatePost handles PUT /api/me/subpages/:subpageId/posts/:postId.
//
// The main-file/URL cases are mutually exclusive and evaluated in order:
//  1. a new main file is attached: the old file is replaced and the URL
//     cleared;
//  2. no new file, but clearFile=true and a URL is supplied: the old file is
//     deleted and the URL takes over;
//  3. otherwise only the URL is updated and the file path stays untouched.
//
// A clearFile without an accompanying URL falls through to case 3 and leaves
// the stored file alone. A new preview image always replaces the old one,
// independent of the cases above.
func (h *Handler) UpdatePost(c *gin.Context) {
	identity := auth.Identity(c)
	subpageID := c.Param("subpageId")
	postID := c.Param("postId")

	title := c.PostForm("title")
	description := c.PostForm("description")
	url := c.PostForm("url")
	clearFile := c.PostForm("clearFile")
	if title == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title and description are required."})
		return
	}

	newMain, err := h.formUpload(c, identity.UserID, uploads.SlotMainFile)
	if err != nil {
		log.Error("failed to store uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An internal server error occurred while updating the post."})
		return
	}
	newPreview, err := h.formUpload(c, identity.UserID, uploads.SlotPreviewImage)
	if err != nil {
		h.uploads.RemoveAll(paths(newMain))
		if errors.Is(err, uploads.ErrNotAnImage) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Preview must be an image file."})
			return
		}
		log.Error("failed to store preview image", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An internal server error occurred while updating the post."})
		return
	}

	var updated store.Post
	var doomed []string
	err = h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		user, ok := doc.UserByID(identity.UserID)
		if !ok {
			return store.ErrNotFound
		}
		subpage, ok := user.SubpageByID(subpageID)
		if !ok {
			return store.ErrNotFound
		}
		post, ok := subpage.PostByID(postID)
		if !ok {
			return store.ErrNotFound
		}

		if newPreview != nil {
			if post.PreviewImage != nil {
				doomed = append(doomed, *post.PreviewImage)
			}
			post.PreviewImage = newPreview
		}

		switch {
		case newMain != nil:
			if post.FilePath != nil {
				doomed = append(doomed, *post.FilePath)
			}
			post.FilePath = newMain
			post.URL = nil
		case clearFile == "true" && url != "":
			if post.FilePath != nil {
				doomed = append(doomed, *post.FilePath)
			}
			post.FilePath = nil
			post.URL = &url
		default:
			post.URL = optString(url)
		}

		post.Title = title
		post.Description = description
		updated = *post
		return nil
	})
	if err != nil {
		h.uploads.RemoveAll(paths(newMain, newPreview))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Post not found."})
			return
		}
		log.Error("failed to update post", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "An internal server error occurred while updating the post."})
		return
	}

	// Old files go only after the document write committed; a crash here
	// leaves orphaned files for the janitor, never dangling references.
	h.uploads.RemoveAll(doomed)
	c.JSON(http.StatusOK, updated)
}

// DeletePost handles DELETE /api/me/subpages/:subpageId/posts/:postId.
func (h *Handler) DeletePost(c *gin.Context) {
	identity := auth.Identity(c)
	subpageID := c.Param("subpageId")
	postID := c.Param("postId")

	var doomed []string
	err := h.store.Update(c.Request.Context(), func(doc *store.Document) error {
		user, ok := doc.UserByID(identity.UserID)
		if !ok {
			return store.ErrNotFound
		}
		subpage, ok := user.SubpageByID(subpageID)
		if !ok {
			return store.ErrNotFound
		}
		post, ok := subpage.RemovePost(postID)
		if !ok {
			return store.ErrNotFound
		}
		doomed = post.FilePaths()
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found."})
		return
	}
	if err != nil {
		log.Error("failed to delete post", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting post."})
		return
	}

	h.uploads.RemoveAll(doomed)
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted."})
}

// formUpload stores the file from the named multipart slot and returns its
// public path, or nil if the slot is absent. Preview images are decoded and
// downscaled, main files stored verbatim.
func (h *Handler) formUpload(c *gin.Context, userID string, slot uploads.Slot) (*string, error) {
	fh, err := c.FormFile(string(slot))
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var public string
	if slot == uploads.SlotPreviewImage {
		public, err = h.uploads.SavePreviewImage(userID, fh.Filename, f)
	} else {
		public, err = h.uploads.Save(userID, slot, fh.Filename, f)
	}
	if err != nil {
		return nil, err
	}
	return &public, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// paths collects the non-nil public paths from a list of optional uploads.
func paths(ps ...*string) []string {
	var out []string
	for _, p := range ps {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
