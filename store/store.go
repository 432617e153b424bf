// Package store persists the whole application state as a single document:
// all users with their nested subpages and posts, plus the admin credential
// pair. Mutations go through Update, which hands the caller an in-memory copy
// under a write lock and persists it when the callback returns nil.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a user, subpage or post doesn't exist.
	ErrNotFound = errors.New("store: not found")
	// ErrUsernameTaken is returned when registering an already existing username.
	ErrUsernameTaken = errors.New("store: username already exists")
)

// Document is the root of the persisted state.
type Document struct {
	Users            []*User          `json:"users"`
	AdminCredentials AdminCredentials `json:"adminCredentials"`
}

// User owns an ordered list of subpages. Password holds the bcrypt hash,
// never the plaintext.
type User struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Password string     `json:"password"`
	Subpages []*Subpage `json:"subpages"`
}

// Subpage is a named grouping of posts owned by exactly one user.
type Subpage struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Posts []*Post `json:"posts"`
}

// Post is a single portfolio entry. URL and FilePath are both optional; when
// both are set, URL wins at render time. PreviewImage and FilePath hold public
// paths under /uploads/.
type Post struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PreviewImage *string `json:"previewImage"`
	FilePath     *string `json:"filePath"`
	URL          *string `json:"url"`
}

// AdminCredentials is the single credential pair checked verbatim against the
// admin_username/admin_password request headers.
type AdminCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store is the document storage contract. View runs fn with a read lock held,
// Update runs fn with the write lock held and persists the document if fn
// returns nil. Returning an error from fn aborts the write and is passed
// through unchanged.
type Store interface {
	View(ctx context.Context, fn func(doc *Document) error) error
	Update(ctx context.Context, fn func(doc *Document) error) error
}

// UserByID returns the user with the given id.
func (d *Document) UserByID(id string) (*User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// UserByUsername returns the user with the given username.
func (d *Document) UserByUsername(username string) (*User, bool) {
	for _, u := range d.Users {
		if u.Username == username {
			return u, true
		}
	}
	return nil, false
}

// RemoveUser deletes the user with the given id and reports whether it existed.
func (d *Document) RemoveUser(id string) bool {
	for i, u := range d.Users {
		if u.ID == id {
			d.Users = append(d.Users[:i], d.Users[i+1:]...)
			return true
		}
	}
	return false
}

// SubpageByID returns the user's subpage with the given id.
func (u *User) SubpageByID(id string) (*Subpage, bool) {
	for _, sp := range u.Subpages {
		if sp.ID == id {
			return sp, true
		}
	}
	return nil, false
}

// RemoveSubpage deletes the subpage with the given id and returns it.
func (u *User) RemoveSubpage(id string) (*Subpage, bool) {
	for i, sp := range u.Subpages {
		if sp.ID == id {
			u.Subpages = append(u.Subpages[:i], u.Subpages[i+1:]...)
			return sp, true
		}
	}
	return nil, false
}

// PostByID returns the subpage's post with the given id.
func (sp *Subpage) PostByID(id string) (*Post, bool) {
	for _, p := range sp.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// RemovePost deletes the post with the given id and returns it.
func (sp *Subpage) RemovePost(id string) (*Post, bool) {
	for i, p := range sp.Posts {
		if p.ID == id {
			sp.Posts = append(sp.Posts[:i], sp.Posts[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// FilePaths returns the post's public file paths (preview and main file).
func (p *Post) FilePaths() []string {
	var paths []string
	if p.PreviewImage != nil && *p.PreviewImage != "" {
		paths = append(paths, *p.PreviewImage)
	}
	if p.FilePath != nil && *p.FilePath != "" {
		paths = append(paths, *p.FilePath)
	}
	return paths
}

// FilePaths returns the public file paths of every post on the subpage.
func (sp *Subpage) FilePaths() []string {
	var paths []string
	for _, p := range sp.Posts {
		paths = append(paths, p.FilePaths()...)
	}
	return paths
}

// Clone returns a copy of the post that is safe to use after the store lock
// is released. The pointer fields are shared; they are only ever replaced
// wholesale under the write lock, never mutated through.
func (p *Post) Clone() *Post {
	c := *p
	return &c
}

// Clone returns a deep copy of the subpage, detached from the document.
// Callers that respond with document data after View/Update returned must
// clone it first, the live tree keeps changing under the write lock.
func (sp *Subpage) Clone() *Subpage {
	c := *sp
	c.Posts = make([]*Post, len(sp.Posts))
	for i, p := range sp.Posts {
		c.Posts[i] = p.Clone()
	}
	return &c
}

// CloneSubpages deep-copies a subpage slice. A nil slice comes back as an
// empty one so responses never serialize to null.
func CloneSubpages(subpages []*Subpage) []*Subpage {
	out := make([]*Subpage, len(subpages))
	for i, sp := range subpages {
		out[i] = sp.Clone()
	}
	return out
}

// ReferencedFiles returns every public upload path referenced by any post in
// the document. The janitor uses this to tell live files from orphans.
func (d *Document) ReferencedFiles() map[string]struct{} {
	refs := make(map[string]struct{})
	for _, u := range d.Users {
		for _, sp := range u.Subpages {
			for _, path := range sp.FilePaths() {
				refs[path] = struct{}{}
			}
		}
	}
	return refs
}
