package importer

import "errors"

// Категории ошибок импорта. Проверяются через errors.Is.
var (
	// ErrConfiguration - неверные параметры New. Возвращается синхронно.
	ErrConfiguration = errors.New("configuration error")
	// ErrNetwork - не удалось скачать фид.
	ErrNetwork = errors.New("network error")
	// ErrFeed - фид не является корректным XML выбранного формата.
	ErrFeed = errors.New("feed error")
	// ErrProtocol - обработчик объявления вернул ответ неизвестного вида.
	ErrProtocol = errors.New("protocol error")
	// ErrFilesystem - не удалось заменить файл отчета или удалить временные файлы.
	ErrFilesystem = errors.New("filesystem error")
)

// Стабильные тексты ошибок, на которые опираются потребители библиотеки.
const (
	MsgOptionsRequired   = `"options" parameter is required`
	MsgFeedURLRequired   = `"options.xmlFeedUrl" parameter is required`
	MsgReportRequired    = `"options.reportFileLocation" parameter is required`
	MsgFormatRequired    = `"options.format" parameter is required`
	MsgFeedURLInvalid    = `"options.xmlFeedUrl" parameter is invalid`
	MsgFormatInvalid     = `"options.format" parameter is invalid`
	MsgOnItemRequired    = `"options.onItem" callback is required`
	MsgOnEndRequired     = `"options.onEnd" callback is required`
	MsgOnErrorRequired   = `"options.onError" callback is required`
	MsgNotObject         = "data must be an object"
	MsgURLNotString      = "url must be a string"
	MsgErrorNotString    = "error must be a string"
	MsgSimilarNotString  = "similarUrl must be a string"
	MsgRejectNotString   = "rejectReason must be a string"
	MsgUnexpectedData    = "unexpected data"
	MsgMissingIdentifier = "missing identifier"
	MsgHandlerTimeout    = "item handler did not reply in time"
	MsgAlreadyRunning    = "import is already running"
	MsgHandlerPanicked   = "item handler panicked"
)

// Error - ошибка импорта с категорией Kind и стабильным сообщением Msg.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

// Error возвращает сообщение, за которым через ": " следует причина, если она есть.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Is сопоставляет ошибку с ее категорией.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap возвращает исходную причину.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func configError(msg string) *Error {
	return newError(ErrConfiguration, msg, nil)
}

func protocolError(msg string) *Error {
	return newError(ErrProtocol, msg, nil)
}
