package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"

	"realtyimport/domain"
)

const rootTag = "objects"

// objectXML - представление записи отчета в XML. Указатели позволяют
// различать отсутствующее поле и пустую строку.
type objectXML struct {
	XMLName      xml.Name `xml:"object"`
	ID           string   `xml:"id,attr"`
	URL          *string  `xml:"url,omitempty"`
	Views        *string  `xml:"views,omitempty"`
	Error        *string  `xml:"error,omitempty"`
	SimilarURL   *string  `xml:"similarUrl,omitempty"`
	RejectReason *string  `xml:"rejectReason,omitempty"`
}

// Builder инкрементально пишет XML-отчет во временный файл.
// Каждая запись сериализуется и сбрасывается на диск сразу, поэтому
// расход памяти не зависит от размера фида. Ошибки записи логируются
// и не прерывают импорт.
type Builder struct {
	log     *slog.Logger
	path    string
	file    *os.File
	enc     *xml.Encoder
	entries int
	failed  int
}

// NewBuilder создает построитель отчета.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log.With(slog.String("component", "report"))}
}

// Open создает файл path, пишет XML-декларацию и открывающий тег objects.
func (b *Builder) Open(path string) error {
	const op = "report.Open"
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: failed to create report file %s: %w", op, path, err)
	}
	b.path = path
	b.file = file
	b.enc = xml.NewEncoder(file)
	b.enc.Indent("", "\t")
	if err := b.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return b.abort(op, err)
	}
	// Indent не переносит строку после декларации.
	if err := b.enc.Flush(); err != nil {
		return b.abort(op, err)
	}
	if _, err := b.file.WriteString("\n"); err != nil {
		return b.abort(op, err)
	}
	if err := b.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: rootTag}}); err != nil {
		return b.abort(op, err)
	}
	if err := b.enc.Flush(); err != nil {
		return b.abort(op, err)
	}
	return nil
}

func (b *Builder) abort(op string, err error) error {
	b.file.Close()
	b.file = nil
	return fmt.Errorf("%s: failed to write report header: %w", op, err)
}

// Append сериализует одну запись и сразу сбрасывает ее в файл.
func (b *Builder) Append(entry domain.Entry) {
	b.entries++
	if b.enc == nil {
		b.failed++
		b.log.Warn("Report is not open, entry dropped", slog.String("id", entry.ID))
		return
	}
	if err := b.enc.Encode(toXML(entry)); err != nil {
		b.failed++
		b.log.Warn("Failed to write report entry",
			slog.String("op", "report.Append"),
			slog.String("id", entry.ID),
			slog.Any("error", err),
		)
	}
}

// Close дописывает закрывающий тег и закрывает файл.
func (b *Builder) Close() error {
	const op = "report.Close"
	if b.file == nil {
		return nil
	}
	defer func() { b.file = nil; b.enc = nil }()
	encErr := b.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: rootTag}})
	if encErr == nil {
		encErr = b.enc.Flush()
	}
	if encErr == nil {
		_, encErr = b.file.WriteString("\n")
	}
	closeErr := b.file.Close()
	if encErr != nil {
		return fmt.Errorf("%s: failed to finish report %s: %w", op, b.path, encErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%s: failed to close report %s: %w", op, b.path, closeErr)
	}
	b.log.Debug("Report closed",
		slog.String("path", b.path),
		slog.Int("entries", b.entries),
		slog.Int("failed", b.failed),
	)
	return nil
}

// Entries возвращает число записей, переданных в Append.
func (b *Builder) Entries() int { return b.entries }

// Path возвращает путь открытого файла отчета.
func (b *Builder) Path() string { return b.path }

func toXML(e domain.Entry) objectXML {
	obj := objectXML{ID: e.ID}
	switch {
	case e.Error != "":
		obj.Error = strPtr(e.Error)
	case e.SimilarURL != "":
		obj.SimilarURL = strPtr(e.SimilarURL)
	case e.RejectReason != "":
		obj.RejectReason = strPtr(e.RejectReason)
	default:
		obj.URL = strPtr(e.URL)
		if e.Views != nil {
			obj.Views = strPtr(fmt.Sprint(e.Views))
		}
	}
	return obj
}

func strPtr(s string) *string { return &s }

// Decode читает отчет, записанный Builder, обратно в список записей.
func Decode(r io.Reader) ([]domain.Entry, error) {
	var doc struct {
		XMLName xml.Name    `xml:"objects"`
		Objects []objectXML `xml:"object"`
	}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	entries := make([]domain.Entry, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		e := domain.Entry{ID: obj.ID}
		if obj.URL != nil {
			e.URL = *obj.URL
		}
		if obj.Views != nil {
			e.Views = *obj.Views
		}
		if obj.Error != nil {
			e.Error = *obj.Error
		}
		if obj.SimilarURL != nil {
			e.SimilarURL = *obj.SimilarURL
		}
		if obj.RejectReason != nil {
			e.RejectReason = *obj.RejectReason
		}
		entries = append(entries, e)
	}
	return entries, nil
}
