package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"realtyimport/domain"

	"golang.org/x/text/encoding/htmlindex"
)

// EventKind - тип события потокового парсера.
type EventKind int

const (
	// EventRecord - закрылся элемент объявления.
	EventRecord EventKind = iota
	// EventEnd - закрылся корневой элемент фида. Приходит ровно один раз.
	EventEnd
	// EventError - ошибка разбора XML или преждевременный конец файла.
	EventError
)

// Event - событие, которое StreamReader отдает через Events().
type Event struct {
	Kind   EventKind
	Record *domain.Element
	Err    error
}

// ErrUnexpectedEnd - файл закончился раньше, чем закрылся корневой элемент:
// пустой файл, только пролог или обрыв внутри открытых элементов.
var ErrUnexpectedEnd = errors.New("feed ended before root element was closed")

// isTruncated сообщает, что декодер дошел до конца входа при открытых
// элементах. encoding/xml возвращает в этом случае SyntaxError, а не io.EOF.
func isTruncated(err error) bool {
	var syntaxErr *xml.SyntaxError
	return errors.As(err, &syntaxErr) && syntaxErr.Msg == "unexpected EOF"
}

// StreamReader инкрементально разбирает XML-фид и выдает по одному событию
// на каждое закрытое объявление. Поддерживает Pause/Resume: после Pause
// Events() возвращает nil-канал, а фоновая горутина не читает вход дальше
// одного уже разобранного события.
type StreamReader struct {
	dec       *xml.Decoder
	recordTag string
	rootTag   string
	collect   map[string]bool
	log       *slog.Logger

	events    chan Event
	gate      *gate
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewStreamReader создает парсер поверх r. recordTag - тег объявления,
// rootTag - корневой тег фида.
func NewStreamReader(r io.Reader, recordTag, rootTag string, log *slog.Logger) *StreamReader {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return &StreamReader{
		dec:       dec,
		recordTag: recordTag,
		rootTag:   rootTag,
		collect:   make(map[string]bool),
		log:       log,
		events:    make(chan Event),
		gate:      newGate(),
		stop:      make(chan struct{}),
	}
}

// Collect регистрирует дочерний тег, все вхождения которого собираются
// в упорядоченный список. Вызывается до Start.
func (r *StreamReader) Collect(tag string) {
	r.collect[tag] = true
}

// Start запускает разбор в фоновой горутине. Повторные вызовы игнорируются.
func (r *StreamReader) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Events возвращает канал событий или nil, пока парсер на паузе.
// Канал закрывается после EventEnd, EventError или Close.
func (r *StreamReader) Events() <-chan Event {
	if r.gate.paused() {
		return nil
	}
	return r.events
}

// Pause останавливает выдачу событий до вызова Resume.
func (r *StreamReader) Pause() {
	r.gate.pause()
}

// Resume возобновляет выдачу событий.
func (r *StreamReader) Resume() {
	r.gate.resume()
}

// Close останавливает фоновую горутину. Источник данных закрывает вызывающий.
func (r *StreamReader) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *StreamReader) run() {
	defer close(r.events)
	var stack []*domain.Element
	records := 0
	for {
		tok, err := r.dec.Token()
		if err == io.EOF || isTruncated(err) {
			r.emit(Event{Kind: EventError, Err: ErrUnexpectedEnd})
			return
		}
		if err != nil {
			r.emit(Event{Kind: EventError, Err: fmt.Errorf("failed to decode XML: %w", err)})
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && t.Name.Local != r.recordTag {
				continue
			}
			stack = append(stack, newElement(t))
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				if t.Name.Local == r.rootTag {
					r.log.Debug("Root element closed", slog.Int("records", records))
					r.emit(Event{Kind: EventEnd})
					return
				}
				continue
			}
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			el.Text = strings.TrimSpace(el.Text)
			if len(stack) > 0 {
				r.attach(stack[len(stack)-1], el)
				continue
			}
			records++
			if !r.emit(Event{Kind: EventRecord, Record: el}) {
				return
			}
		}
	}
}

// attach добавляет child к parent с учетом собираемых тегов.
func (r *StreamReader) attach(parent, child *domain.Element) {
	if r.collect[child.Name] {
		parent.Children[child.Name] = append(parent.Children[child.Name], child)
		return
	}
	parent.Children[child.Name] = []*domain.Element{child}
}

// emit ждет открытия затвора и передает событие потребителю.
// Возвращает false, если парсер остановлен через Close.
func (r *StreamReader) emit(ev Event) bool {
	select {
	case <-r.gate.wait():
	case <-r.stop:
		return false
	}
	select {
	case r.events <- ev:
		return true
	case <-r.stop:
		return false
	}
}

func newElement(start xml.StartElement) *domain.Element {
	el := domain.NewElement(start.Name.Local)
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		el.Attrs[a.Name.Local] = a.Value
	}
	return el
}

// charsetReader поддерживает кодировки из объявления XML, отличные от UTF-8
// (windows-1251, koi8-r и т.п.).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// gate - одноместный затвор обратного давления.
type gate struct {
	mu     sync.Mutex
	closed bool
	open   chan struct{}
}

func newGate() *gate {
	g := &gate{open: make(chan struct{})}
	close(g.open)
	return g
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		g.open = make(chan struct{})
	}
}

func (g *gate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		g.closed = false
		close(g.open)
	}
}

func (g *gate) paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *gate) wait() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}
