package mimepart

import (
	gmail "google.golang.org/api/gmail/v1"
)

// MimeTypePlainText is the MIME type of a plain-text body part.
const MimeTypePlainText = "text/plain"

// Part is one node of a message payload tree. It is either a *Leaf or a
// *Container.
type Part interface {
	// Type returns the part's MIME type, e.g. "multipart/mixed".
	Type() string

	// Name returns the part's filename, or "" when it has none.
	Name() string

	isPart()
}

// Leaf is a part carrying literal content.
type Leaf struct {
	MimeType string
	Filename string

	// Data is the base64url-encoded body content.
	Data string

	// HasData reports whether the body carried a data field at all.
	HasData bool
}

// Container groups ordered child parts. Its own body is never read.
type Container struct {
	MimeType string
	Filename string
	Parts    []Part
}

func (l *Leaf) Type() string { return l.MimeType }
func (l *Leaf) Name() string { return l.Filename }
func (*Leaf) isPart() {}

func (c *Container) Type() string { return c.MimeType }
func (c *Container) Name() string { return c.Filename }
func (*Container) isPart() {}

// FromGmail converts a Gmail API message part into a Part tree.
// A part whose Parts field is set, even to an empty list, becomes a Container.
// A nil part converts to nil.
func FromGmail(p *gmail.MessagePart) Part {
	if p == nil {
		return nil
	}

	if p.Parts != nil {
		c := &Container{
			MimeType: p.MimeType,
			Filename: p.Filename,
			Parts:    make([]Part, 0, len(p.Parts)),
		}
		for _, child := range p.Parts {
			if converted := FromGmail(child); converted != nil {
				c.Parts = append(c.Parts, converted)
			}
		}
		return c
	}

	leaf := &Leaf{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	if p.Body != nil && p.Body.Data != "" {
		leaf.Data = p.Body.Data
		leaf.HasData = true
	}
	return leaf
}
