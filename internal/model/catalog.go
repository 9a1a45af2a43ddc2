// AngelaMos | 2026
// catalog.go

package model

import (
	"slices"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const DefaultCategory = "Uncategorized"

type Account struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Name        string    `json:"name,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Video is a catalog record. Deleted and DeletedAt move together: a
// trashed video always carries DeletedAt and an active one never does.
type Video struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Filename      string     `json:"filename"`
	Path          string     `json:"path"`
	Thumbnail     *string    `json:"thumbnail"`
	ThumbnailFile *string    `json:"thumbnailFile,omitempty"`
	ContentType   string     `json:"contentType,omitempty"`
	Size          int64      `json:"size,omitempty"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	UploadedBy    string     `json:"uploadedBy"`
	CreatedAt     time.Time  `json:"createdAt"`
	Deleted       bool       `json:"deleted,omitempty"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

func (v *Video) IsTrashed() bool {
	return v.Deleted
}

func (v *Video) Trash(at time.Time) {
	v.Deleted = true
	v.DeletedAt = &at
}

func (v *Video) Restore() {
	v.Deleted = false
	v.DeletedAt = nil
}

func (v *Video) HasTag(tag string) bool {
	return slices.Contains(v.Tags, tag)
}

func (v *Video) SetThumbnail(url, key string) {
	v.Thumbnail = &url
	v.ThumbnailFile = &key
}

func (v Video) clone() Video {
	c := v
	c.Tags = slices.Clone(v.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if v.Thumbnail != nil {
		t := *v.Thumbnail
		c.Thumbnail = &t
	}
	if v.ThumbnailFile != nil {
		t := *v.ThumbnailFile
		c.ThumbnailFile = &t
	}
	if v.DeletedAt != nil {
		t := *v.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// Document is the whole persisted catalog. Every backend stores exactly
// one of these.
type Document struct {
	Users      []Account `json:"users"`
	Videos     []Video   `json:"videos"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	Settings   *Settings `json:"settings,omitempty"`
}

func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize fills in collections missing from an older or partial
// document so callers never see nil.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []Account{}
	}
	if d.Videos == nil {
		d.Videos = []Video{}
	}
	if d.Categories == nil {
		d.Categories = []string{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	for i := range d.Videos {
		if d.Videos[i].Tags == nil {
			d.Videos[i].Tags = []string{}
		}
		if d.Videos[i].Deleted && d.Videos[i].DeletedAt == nil {
			d.Videos[i].Trash(d.Videos[i].CreatedAt)
		}
		if !d.Videos[i].Deleted {
			d.Videos[i].DeletedAt = nil
		}
	}
	if d.Settings == nil {
		s := DefaultSettings()
		d.Settings = &s
	}
	d.Settings.Normalize()
}

func (d *Document) Clone() *Document {
	c := &Document{
		Users:      slices.Clone(d.Users),
		Videos:     make([]Video, len(d.Videos)),
		Categories: slices.Clone(d.Categories),
		Tags:       slices.Clone(d.Tags),
	}
	for i := range d.Videos {
		c.Videos[i] = d.Videos[i].clone()
	}
	if d.Settings != nil {
		s := d.Settings.clone()
		c.Settings = &s
	}
	c.Normalize()
	return c
}

func (d *Document) VideoIndex(id string) int {
	return slices.IndexFunc(d.Videos, func(v Video) bool {
		return v.ID == id
	})
}

func (d *Document) FindVideo(id string) *Video {
	if i := d.VideoIndex(id); i >= 0 {
		return &d.Videos[i]
	}
	return nil
}

func (d *Document) AccountIndex(id string) int {
	return slices.IndexFunc(d.Users, func(a Account) bool {
		return a.ID == id
	})
}

func (d *Document) FindAccount(id string) *Account {
	if i := d.AccountIndex(id); i >= 0 {
		return &d.Users[i]
	}
	return nil
}

func (d *Document) FindAccountByEmail(email string) *Account {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *Document) HasUsername(username string) bool {
	return slices.ContainsFunc(d.Users, func(a Account) bool {
		return a.Username == username
	})
}

func (d *Document) DefaultCategory() string {
	if d.Settings == nil || d.Settings.DefaultCategory == "" {
		return DefaultCategory
	}
	return d.Settings.DefaultCategory
}
