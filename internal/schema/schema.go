// Package schema описывает поддерживаемые форматы XML-фидов.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"realtyimport/domain"
)

const (
	Realtypult = "realtypult"
	Yandex     = "yandex"
)

// ErrUnknownFormat возвращается Lookup для неподдерживаемого формата.
var ErrUnknownFormat = errors.New("unknown feed format")

// Descriptor связывает формат фида с тегами его разметки.
type Descriptor struct {
	Name        string
	RecordTag   string
	RootTag     string
	CollectTags []string
	ExtractID   func(item *domain.Element) string
}

var descriptors = map[string]Descriptor{
	Realtypult: {
		Name:        Realtypult,
		RecordTag:   "object",
		RootTag:     "root",
		CollectTags: []string{"image"},
		ExtractID:   attrExtractor("id"),
	},
	Yandex: {
		Name:        Yandex,
		RecordTag:   "offer",
		RootTag:     "realty-feed",
		CollectTags: []string{"image", "room-space"},
		ExtractID:   attrExtractor("internal-id"),
	},
}

func attrExtractor(name string) func(*domain.Element) string {
	return func(item *domain.Element) string {
		return item.Attr(name)
	}
}

// Lookup возвращает дескриптор формата по имени.
func Lookup(name string) (Descriptor, error) {
	d, ok := descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return d, nil
}

// Names возвращает отсортированный список поддерживаемых форматов.
func Names() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
