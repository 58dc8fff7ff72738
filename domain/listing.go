package domain

import "strings"

// Element представляет узел XML-фида в слабо типизированном виде:
// атрибуты, текстовое содержимое и дочерние элементы по имени тега.
// Для "собираемых" тегов (image, room-space) Children хранит все вхождения
// в порядке появления, для остальных - только последнее.
type Element struct {
	Name     string                `json:"name"`
	Attrs    map[string]string     `json:"attrs,omitempty"`
	Text     string                `json:"text,omitempty"`
	Children map[string][]*Element `json:"children,omitempty"`
}

// NewElement создает пустой элемент с инициализированными картами.
func NewElement(name string) *Element {
	return &Element{
		Name:     name,
		Attrs:    make(map[string]string),
		Children: make(map[string][]*Element),
	}
}

// Attr возвращает значение атрибута или пустую строку.
func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attrs[name]
}

// Child возвращает последний дочерний элемент с указанным тегом.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	list := e.Children[name]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// All возвращает все дочерние элементы с указанным тегом.
func (e *Element) All(name string) []*Element {
	if e == nil {
		return nil
	}
	return e.Children[name]
}

// Value возвращает текст дочернего элемента по пути вида "location/address".
func (e *Element) Value(path string) string {
	cur := e
	for _, part := range strings.Split(path, "/") {
		cur = cur.Child(part)
		if cur == nil {
			return ""
		}
	}
	return strings.TrimSpace(cur.Text)
}

// Listing - одно объявление фида, переданное обработчику.
// ID заполняется импортером через экстрактор идентификатора схемы.
type Listing struct {
	ID     string
	Format string
	*Element
}
