// Package pages reads the wiki page export consumed by the seed round: a
// YAML stream with one document per Person or Family page.
package pages

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/interval"
)

// Event is one dated fact on a page.
type Event struct {
	Type string `yaml:"type"`
	Date string `yaml:"date,omitempty"`
}

// Page is one exported wiki page.
type Page struct {
	Title      string `yaml:"title"`
	PageID     int    `yaml:"page_id"`
	LastEditor string `yaml:"last_editor,omitempty"`
	Redirect   bool   `yaml:"redirect,omitempty"`

	// Text is the raw page markup. Only template flags are read from it.
	Text string `yaml:"text,omitempty"`

	Gender        string   `yaml:"gender,omitempty"`
	Events        []Event  `yaml:"events,omitempty"`
	ChildOfFamily []string `yaml:"child_of_family,omitempty"`
	Husband       []string `yaml:"husband,omitempty"`
	Wife          []string `yaml:"wife,omitempty"`
}

const redirectPrefix = "#REDIRECT"

// IsRedirect reports whether the page only points elsewhere.
func (p *Page) IsRedirect() bool {
	return p.Redirect || strings.HasPrefix(strings.ToUpper(strings.TrimSpace(p.Text)), redirectPrefix)
}

// Namespace splits the namespace prefix off the title. ok is false for
// pages outside the Person and Family namespaces.
func (p *Page) Namespace() (ns interval.Namespace, name string, ok bool) {
	prefix, rest, found := strings.Cut(p.Title, ":")
	if !found || strings.TrimSpace(rest) == "" {
		return 0, "", false
	}
	switch strings.TrimSpace(prefix) {
	case "Person":
		return interval.NamespacePerson, interval.NormalizeTitle(rest), true
	case "Family":
		return interval.NamespaceFamily, interval.NormalizeTitle(rest), true
	}
	return 0, "", false
}

// RefTitle normalizes a page reference (child_of_family, husband, wife) to
// the stored title form, dropping a leading namespace prefix.
func RefTitle(ref string) string {
	ref = strings.TrimSpace(ref)
	for _, prefix := range []string{"Person:", "Family:"} {
		if strings.HasPrefix(ref, prefix) {
			ref = strings.TrimPrefix(ref, prefix)
			break
		}
	}
	return interval.NormalizeTitle(ref)
}

// Reader decodes pages one document at a time.
type Reader struct {
	dec   *yaml.Decoder
	count int
}

// NewReader returns a Reader over a YAML stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: yaml.NewDecoder(r)}
}

// Next returns the next page, or io.EOF at the end of the stream.
// Empty documents are skipped.
func (r *Reader) Next() (*Page, error) {
	for {
		var page Page
		err := r.dec.Decode(&page)
		if err == io.EOF {
			return nil, io.EOF
		}
		r.count++
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode page document %d", r.count)
		}
		if page.Title == "" && page.PageID == 0 {
			continue
		}
		if page.PageID <= 0 {
			return nil, errors.Newf("page document %d (%q) has no page_id", r.count, page.Title)
		}
		return &page, nil
	}
}

// Documents returns the number of documents read so far.
func (r *Reader) Documents() int {
	return r.count
}
