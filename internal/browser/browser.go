// Package browser defines the browser collaborator used to drive the job platform.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports that no element matched a selector.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout reports that a browser action did not finish in time.
	ErrTimeout = errors.New("browser action timed out")
	// ErrStaleSession reports that the browser session is gone. It is unrecoverable.
	ErrStaleSession = errors.New("browser session lost")
)

// Element is a handle to a node found on the current page. Handles become
// invalid after navigation.
type Element struct {
	Selector string
	Tag      string
	Attrs    map[string]string

	ref any
}

// Attr returns the attribute value or an empty string.
func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attrs[name]
}

// NewElement builds a handle; ref is opaque to everything but the Browser that created it.
func NewElement(selector, tag string, attrs map[string]string, ref any) *Element {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Element{Selector: selector, Tag: tag, Attrs: attrs, ref: ref}
}

// Ref returns the implementation specific reference of the element.
func (e *Element) Ref() any {
	if e == nil {
		return nil
	}
	return e.ref
}

// Browser is a single, exclusive, stateful browser session.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching selector or ErrNotFound.
	Find(ctx context.Context, selector string) (*Element, error)
	FindAll(ctx context.Context, selector string) ([]*Element, error)
	Click(ctx context.Context, el *Element) error
	// Type replaces the value of an input with text.
	Type(ctx context.Context, el *Element, text string) error
	ReadText(ctx context.Context, el *Element) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// HTML returns the markup of the current document.
	HTML(ctx context.Context) (string, error)
	SetFiles(ctx context.Context, el *Element, paths ...string) error
	// SelectOption sets the value of a select element.
	SelectOption(ctx context.Context, el *Element, value string) error
	// Checked reports the live checked state of a checkbox or radio input.
	// The checked attribute only holds the initial state.
	Checked(ctx context.Context, el *Element) (bool, error)
	Close() error
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout)
}
