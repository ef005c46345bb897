package mimepart

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 is wrapped by a DecodeError when decoded body bytes are not
// valid UTF-8.
var ErrInvalidUTF8 = errors.New("body is not valid UTF-8")

// ErrExcessPadding is wrapped by a DecodeError when body data ends in more
// than two '=' characters.
var ErrExcessPadding = errors.New("body has more than two padding characters")

// DecodeError reports a plain-text part whose body data could not be decoded.
type DecodeError struct {
	MimeType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s body: %v", e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PlainTextBody returns the first text/plain body found in a depth-first,
// pre-order walk of root. It returns "" with a nil error when the tree has no
// text/plain leaf with body data.
func PlainTextBody(root Part) (string, error) {
	switch p := root.(type) {
	case *Container:
		for _, child := range p.Parts {
			switch c := child.(type) {
			case *Leaf:
				if isPlainText(c) {
					return decodeBody(c)
				}
			case *Container:
				body, err := PlainTextBody(c)
				if err != nil {
					return "", err
				}
				if body != "" {
					return body, nil
				}
			}
		}
	case *Leaf:
		if isPlainText(p) {
			return decodeBody(p)
		}
	}
	return "", nil
}

// AttachmentFilenames returns the non-empty filenames of every part below
// root, in pre-order. The root's own filename is not reported, and a Leaf root
// yields an empty slice.
func AttachmentFilenames(root Part) []string {
	filenames := []string{}
	c, ok := root.(*Container)
	if !ok {
		return filenames
	}

	for _, child := range c.Parts {
		if child == nil {
			continue
		}
		if name := child.Name(); name != "" {
			filenames = append(filenames, name)
		}
		if sub, ok := child.(*Container); ok {
			filenames = append(filenames, AttachmentFilenames(sub)...)
		}
	}
	return filenames
}

func isPlainText(l *Leaf) bool {
	return l.MimeType == MimeTypePlainText && l.HasData
}

// decodeBody decodes base64url body data with or without padding. Up to two
// trailing '=' are accepted whether or not the length calls for them.
func decodeBody(l *Leaf) (string, error) {
	data := strings.TrimRight(l.Data, "=")
	if len(l.Data)-len(data) > 2 {
		return "", &DecodeError{MimeType: l.MimeType, Err: ErrExcessPadding}
	}
	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return "", &DecodeError{MimeType: l.MimeType, Err: err}
	}
	if !utf8.Valid(raw) {
		return "", &DecodeError{MimeType: l.MimeType, Err: ErrInvalidUTF8}
	}
	return string(raw), nil
}
