package importer

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"time"

	"realtyimport/domain"
)

// ReplyFunc передает вердикт по объявлению. Может вызываться синхронно
// из обработчика или позже из любой горутины. Учитывается только первый вызов.
type ReplyFunc func(data any)

// ItemHandler обрабатывает одно объявление. ctx несет логгер задачи
// (см. logger.From).
type ItemHandler func(ctx context.Context, item domain.Listing, reply ReplyFunc)

// EndHandler получает итоговый отчет успешного импорта.
type EndHandler func(report domain.Report)

// ErrorHandler получает ошибку, прервавшую импорт.
type ErrorHandler func(err error)

// Fetcher скачивает фид во временный файл и возвращает путь к нему.
type Fetcher interface {
	Download(ctx context.Context, url string) (string, error)
}

// Options - обязательные параметры импорта.
type Options struct {
	XMLFeedURL         string
	ReportFileLocation string
	Format             string
	OnItem             ItemHandler
	OnEnd              EndHandler
	OnError            ErrorHandler
}

// Option настраивает необязательные параметры Importer.
type Option func(*settings)

type settings struct {
	log          *slog.Logger
	fetcher      Fetcher
	tempDir      string
	fetchTimeout time.Duration
	itemTimeout  time.Duration
	stateHook    func(State)
}

// WithLogger задает логгер. По умолчанию сообщения отбрасываются.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithFetcher подменяет HTTP-загрузчик фида.
func WithFetcher(f Fetcher) Option {
	return func(s *settings) {
		s.fetcher = f
	}
}

// WithTempDir задает каталог временных файлов (по умолчанию os.TempDir()).
func WithTempDir(dir string) Option {
	return func(s *settings) {
		s.tempDir = dir
	}
}

// WithFetchTimeout ограничивает время загрузки фида (по умолчанию 2 минуты).
func WithFetchTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.fetchTimeout = d
	}
}

// WithItemTimeout ограничивает ожидание ответа обработчика.
// Объявление без ответа попадает в отчет как ошибка. 0 - ждать без ограничения.
func WithItemTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.itemTimeout = d
	}
}

// WithStateHook вызывает fn при каждой смене состояния задачи.
func WithStateHook(fn func(State)) Option {
	return func(s *settings) {
		s.stateHook = fn
	}
}

// validate проверяет параметры в фиксированном порядке и возвращает первую ошибку.
func (o *Options) validate() error {
	if o == nil {
		return configError(MsgOptionsRequired)
	}
	if o.XMLFeedURL == "" {
		return configError(MsgFeedURLRequired)
	}
	if o.ReportFileLocation == "" {
		return configError(MsgReportRequired)
	}
	if o.Format == "" {
		return configError(MsgFormatRequired)
	}
	if !isFeedURL(o.XMLFeedURL) {
		return configError(MsgFeedURLInvalid)
	}
	if o.OnItem == nil {
		return configError(MsgOnItemRequired)
	}
	if o.OnEnd == nil {
		return configError(MsgOnEndRequired)
	}
	if o.OnError == nil {
		return configError(MsgOnErrorRequired)
	}
	return nil
}

func isFeedURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
