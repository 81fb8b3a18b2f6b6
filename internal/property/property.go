// Package property resolves page property items returned by the page
// property endpoint into plain values.
package property

import (
	"strings"

	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/util"
)

// Properties maps a property name to its retrieved item.
type Properties map[string]*notion.PropertyItem

// Resolve returns the named property when its type matches typ. A paginated
// list resolves to its first result only; later pages are never fetched.
// Absence and type mismatch both yield nil.
func Resolve(props Properties, key, typ string) *notion.PropertyItem {
	item, ok := props[key]
	if !ok || item == nil {
		return nil
	}
	return resolveItem(item, typ)
}

func resolveItem(item *notion.PropertyItem, typ string) *notion.PropertyItem {
	if item.Object == notion.ObjectList {
		if len(item.Results) == 0 || item.Results[0] == nil {
			return nil
		}
		return resolveItem(item.Results[0], typ)
	}
	if item.Type != typ {
		return nil
	}
	return item
}

// ResolveList returns every first-page result of a list property whose type
// matches typ. A non-list property resolves to a one element slice.
func ResolveList(props Properties, key, typ string) []*notion.PropertyItem {
	item, ok := props[key]
	if !ok || item == nil {
		return nil
	}
	if item.Object != notion.ObjectList {
		if resolved := resolveItem(item, typ); resolved != nil {
			return []*notion.PropertyItem{resolved}
		}
		return nil
	}
	out := make([]*notion.PropertyItem, 0, len(item.Results))
	for _, result := range item.Results {
		if result == nil {
			continue
		}
		if resolved := resolveItem(result, typ); resolved != nil {
			out = append(out, resolved)
		}
	}
	return out
}

// Text joins the plain text of a title or rich_text property across the
// results of its first page. It returns nil when the property is absent.
func Text(props Properties, key, typ string) *string {
	items := ResolveList(props, key, typ)
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	for _, item := range items {
		var rt *notion.RichText
		switch typ {
		case "title":
			rt = item.Title
		case "rich_text":
			rt = item.RichText
		}
		if rt != nil {
			b.WriteString(rt.PlainText)
		}
	}
	text := b.String()
	return &text
}

func Number(props Properties, key string) *float64 {
	if item := Resolve(props, key, "number"); item != nil {
		return item.Number
	}
	return nil
}

func Date(props Properties, key string) *string {
	if item := Resolve(props, key, "date"); item != nil && item.Date != nil {
		start := item.Date.Start
		return &start
	}
	return nil
}

func Email(props Properties, key string) *string {
	if item := Resolve(props, key, "email"); item != nil {
		return item.Email
	}
	return nil
}

func URL(props Properties, key string) *string {
	if item := Resolve(props, key, "url"); item != nil {
		return item.URL
	}
	return nil
}

func Select(props Properties, key string) *notion.SelectOption {
	if item := Resolve(props, key, "select"); item != nil {
		return item.Select
	}
	return nil
}

func MultiSelect(props Properties, key string) []notion.SelectOption {
	if item := Resolve(props, key, "multi_select"); item != nil {
		return item.MultiSelect
	}
	return nil
}

// Relations returns the compact ids of a relation property, in order.
func Relations(props Properties, key string) []string {
	items := ResolveList(props, key, "relation")
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Relation != nil && item.Relation.ID != "" {
			ids = append(ids, util.Compact(item.Relation.ID))
		}
	}
	return ids
}

type File struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Files flattens hosted and external file entries; other kinds are skipped.
func Files(props Properties, key string) []File {
	item := Resolve(props, key, "files")
	if item == nil {
		return nil
	}
	out := make([]File, 0, len(item.Files))
	for _, f := range item.Files {
		switch {
		case f.Type == "external" && f.External != nil:
			out = append(out, File{URL: f.External.URL, Name: f.Name})
		case f.Type == "file" && f.File != nil:
			out = append(out, File{URL: f.File.URL, Name: f.Name})
		}
	}
	return out
}
