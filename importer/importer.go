// Package importer импортирует XML-фид объявлений о недвижимости:
// скачивает фид, по одному передает объявления обработчику, собирает
// XML-отчет с вердиктами и заменяет им файл назначения.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"realtyimport/domain"
	"realtyimport/internal/adapter/fetcher"
	"realtyimport/internal/adapter/parser"
	"realtyimport/internal/adapter/report"
	"realtyimport/internal/logger"
	"realtyimport/internal/schema"
)

// State - состояние задачи импорта.
type State string

const (
	StateIdle            State = "idle"
	StateFetching        State = "fetching"
	StateReaderSetup     State = "reader_setup"
	StateParsingItem     State = "parsing_item"
	StateAwaitingHandler State = "awaiting_handler"
	StateFinalizing      State = "finalizing"
	StateReplacingReport State = "replacing_report"
	StateCleanup         State = "cleanup"
	StateDone            State = "done"
	StateErrored         State = "errored"
)

const reportTempPrefix = "realtypult-tmp-report"

// Importer выполняет импорт фида. Один экземпляр обслуживает
// не более одного Run одновременно.
type Importer struct {
	opts     Options
	desc     schema.Descriptor
	log      *slog.Logger
	fetcher  Fetcher
	settings settings
	running  atomic.Bool
}

// New проверяет параметры и создает Importer. Ошибки имеют категорию
// ErrConfiguration.
func New(opts *Options, optFns ...Option) (*Importer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	desc, err := schema.Lookup(opts.Format)
	if err != nil {
		return nil, configError(MsgFormatInvalid)
	}

	s := settings{fetchTimeout: fetcher.DefaultTimeout}
	for _, fn := range optFns {
		fn(&s)
	}
	if s.log == nil {
		s.log = discardLogger()
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	log := s.log.With(slog.String("component", "importer"))
	f := s.fetcher
	if f == nil {
		f = fetcher.NewHTTPFetcher(log, s.fetchTimeout, s.tempDir)
	}

	return &Importer{
		opts:     *opts,
		desc:     desc,
		log:      log,
		fetcher:  f,
		settings: s,
	}, nil
}

// Run выполняет одну задачу импорта. По ее завершении ровно один раз
// вызывается OnEnd или OnError; та же ошибка возвращается вызывающему.
func (im *Importer) Run(ctx context.Context) error {
	if !im.running.CompareAndSwap(false, true) {
		err := newError(ErrConfiguration, MsgAlreadyRunning, nil)
		im.opts.OnError(err)
		return err
	}
	defer im.running.Store(false)

	j := im.newJob()
	start := time.Now()
	j.log.Info("Import started")

	if err := j.run(ctx); err != nil {
		j.cleanup()
		j.setState(StateErrored)
		j.log.Error("Import failed",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)),
		)
		im.opts.OnError(err)
		return err
	}

	j.log.Info("Import completed",
		slog.String("report", j.report.Location),
		slog.Int("total", j.report.Statistics.Total),
		slog.Int("success", j.report.Statistics.Success),
		slog.Int("rejected", j.report.Statistics.Rejected),
		slog.Int("errors", j.report.Statistics.Errors),
		slog.Duration("duration", time.Since(start)),
	)
	im.opts.OnEnd(j.report)
	return nil
}

// pending - объявление, ожидающее ответа обработчика.
type pending struct {
	seq  uint64
	item domain.Listing
}

// job - состояние одного запуска. Все поля, кроме queue, меняются
// только горутиной цикла импорта.
type job struct {
	im      *Importer
	log     *slog.Logger
	state   State
	queue   *taskQueue
	builder *report.Builder
	reader  *parser.StreamReader

	downloadPath  string
	reportTmpPath string

	seq     uint64
	waiting *pending
	report  domain.Report
}

func (im *Importer) newJob() *job {
	log := im.log.With(
		slog.String("url", im.opts.XMLFeedURL),
		slog.String("format", im.desc.Name),
	)
	return &job{
		im:      im,
		log:     log,
		state:   StateIdle,
		queue:   newTaskQueue(),
		builder: report.NewBuilder(log),
		report:  domain.Report{Location: im.opts.ReportFileLocation},
	}
}

func (j *job) setState(s State) {
	j.log.Debug("State changed", slog.String("from", string(j.state)), slog.String("to", string(s)))
	j.state = s
	if hook := j.im.settings.stateHook; hook != nil {
		hook(s)
	}
}

func (j *job) run(ctx context.Context) error {
	j.setState(StateFetching)
	j.log.Info("Fetching feed", slog.String("stage", "fetch"))
	path, err := j.im.fetcher.Download(ctx, j.im.opts.XMLFeedURL)
	if err != nil {
		return newError(ErrNetwork, "failed to fetch feed", err)
	}
	j.downloadPath = path

	j.setState(StateReaderSetup)
	j.reportTmpPath = fetcher.TempPath(j.im.settings.tempDir, reportTempPrefix)
	if err := j.builder.Open(j.reportTmpPath); err != nil {
		return newError(ErrFilesystem, "failed to open temporary report", err)
	}

	j.log.Info("Parsing feed", slog.String("stage", "parse"))
	if err := j.consume(ctx); err != nil {
		return err
	}

	j.setState(StateFinalizing)
	if err := j.builder.Close(); err != nil {
		j.log.Warn("Failed to finish report", slog.Any("error", err))
	}

	j.setState(StateReplacingReport)
	j.log.Info("Replacing report", slog.String("stage", "report"), slog.String("path", j.report.Location))
	if err := replaceFile(j.reportTmpPath, j.report.Location); err != nil {
		return newError(ErrFilesystem, "failed to replace report", err)
	}
	j.reportTmpPath = ""

	j.setState(StateCleanup)
	if err := removeIfExists(j.downloadPath); err != nil {
		return newError(ErrFilesystem, "failed to remove downloaded feed", err)
	}
	j.downloadPath = ""

	j.setState(StateDone)
	return nil
}

// consume разбирает скачанный фид. Парсер ставится на паузу перед
// передачей объявления обработчику и возобновляется отдельной задачей
// на следующем обороте цикла, после записи вердикта.
func (j *job) consume(ctx context.Context) error {
	file, err := os.Open(j.downloadPath)
	if err != nil {
		return newError(ErrFilesystem, "failed to open downloaded feed", err)
	}
	defer file.Close()

	j.reader = parser.NewStreamReader(file, j.im.desc.RecordTag, j.im.desc.RootTag, j.log)
	for _, tag := range j.im.desc.CollectTags {
		j.reader.Collect(tag)
	}
	defer j.reader.Close()

	j.setState(StateParsingItem)
	j.reader.Start()

	var timer *time.Timer
	var timeout <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("import cancelled: %w", ctx.Err())

		case ev, ok := <-j.reader.Events():
			if !ok {
				return newError(ErrFeed, "failed to parse feed", parser.ErrUnexpectedEnd)
			}
			switch ev.Kind {
			case parser.EventEnd:
				return nil
			case parser.EventError:
				return newError(ErrFeed, "failed to parse feed", ev.Err)
			case parser.EventRecord:
				j.reader.Pause()
				j.dispatch(ctx, ev.Record)
				if d := j.im.settings.itemTimeout; d > 0 && j.waiting != nil {
					timer = time.NewTimer(d)
					timeout = timer.C
				}
			}

		case <-j.queue.ready:
			for _, task := range j.queue.drain() {
				if err := task(); err != nil {
					return err
				}
			}
			if j.waiting == nil {
				stopTimer()
			}

		case <-timeout:
			timer, timeout = nil, nil
			if p := j.waiting; p != nil {
				j.log.Warn("Item handler timed out", slog.String("id", p.item.ID))
				j.waiting = nil
				j.settle(p.item.ID, domain.Failed{Error: MsgHandlerTimeout})
			}
		}
	}
}

// dispatch передает объявление обработчику. Парсер уже на паузе.
func (j *job) dispatch(ctx context.Context, el *domain.Element) {
	j.report.Statistics.Total++
	item := domain.Listing{
		ID:      j.im.desc.ExtractID(el),
		Format:  j.im.desc.Name,
		Element: el,
	}
	if item.ID == "" {
		j.log.Warn("Listing without identifier", slog.Int("position", j.report.Statistics.Total))
		j.queue.post(func() error {
			j.settle("", domain.Failed{Error: MsgMissingIdentifier})
			return nil
		})
		return
	}

	j.seq++
	p := &pending{seq: j.seq, item: item}
	j.waiting = p
	j.setState(StateAwaitingHandler)

	itemLog := j.log.With(slog.String("id", item.ID))
	itemLog.Debug("Dispatching listing")
	j.invoke(logger.Into(ctx, itemLog), p, j.replyFunc(p, itemLog))
}

func (j *job) invoke(ctx context.Context, p *pending, reply ReplyFunc) {
	defer func() {
		if r := recover(); r != nil {
			j.queue.post(func() error {
				return newError(ErrProtocol, MsgHandlerPanicked, fmt.Errorf("listing %s: %v", p.item.ID, r))
			})
		}
	}()
	j.im.opts.OnItem(ctx, p.item, reply)
}

// replyFunc возвращает функцию ответа для объявления p. Сам ответ
// разбирается на горутине цикла.
func (j *job) replyFunc(p *pending, log *slog.Logger) ReplyFunc {
	var once sync.Once
	return func(data any) {
		first := false
		once.Do(func() {
			first = true
			j.queue.post(func() error {
				return j.handleReply(p, data)
			})
		})
		if !first {
			log.Warn("Duplicate reply ignored")
		}
	}
}

func (j *job) handleReply(p *pending, data any) error {
	if j.waiting != p {
		j.log.Warn("Late reply ignored", slog.String("id", p.item.ID))
		return nil
	}
	j.waiting = nil
	v, err := ClassifyReply(data)
	if err != nil {
		return err
	}
	j.settle(p.item.ID, v)
	return nil
}

// settle пишет вердикт в отчет и ставит возобновление парсера
// в очередь следующего оборота.
func (j *job) settle(id string, v domain.Verdict) {
	j.builder.Append(domain.EntryFor(id, v))
	j.report.Statistics.Count(v.Outcome())
	j.queue.post(j.resume)
}

func (j *job) resume() error {
	j.setState(StateParsingItem)
	j.reader.Resume()
	return nil
}

// cleanup удаляет временные файлы после ошибки. Файл назначения не трогает.
func (j *job) cleanup() {
	if err := j.builder.Close(); err != nil {
		j.log.Warn("Failed to close temporary report", slog.Any("error", err))
	}
	if err := removeIfExists(j.reportTmpPath); err != nil {
		j.log.Warn("Failed to remove temporary report", slog.String("path", j.reportTmpPath), slog.Any("error", err))
	}
	if err := removeIfExists(j.downloadPath); err != nil {
		j.log.Warn("Failed to remove downloaded feed", slog.String("path", j.downloadPath), slog.Any("error", err))
	}
}
