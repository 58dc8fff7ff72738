package domain

// Outcome - категория результата обработки объявления в статистике.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeErrors   Outcome = "errors"
)

// Verdict - ответ обработчика объявления. Закрытое множество вариантов:
// Placed, Failed, Duplicate, Rejected.
type Verdict interface {
	Outcome() Outcome
	entry(id string) Entry
}

// Placed - объявление размещено. Views необязателен (nil - не передан).
type Placed struct {
	URL   string
	Views any
}

// Failed - техническая ошибка при обработке объявления.
type Failed struct {
	Error string
}

// Duplicate - найден похожий объект, объявление не размещено.
type Duplicate struct {
	SimilarURL string
}

// Rejected - объявление отклонено по правилам площадки.
type Rejected struct {
	Reason string
}

func (Placed) Outcome() Outcome    { return OutcomeSuccess }
func (Failed) Outcome() Outcome    { return OutcomeErrors }
func (Duplicate) Outcome() Outcome { return OutcomeRejected }
func (Rejected) Outcome() Outcome  { return OutcomeRejected }

func (v Placed) entry(id string) Entry {
	return Entry{ID: id, URL: v.URL, Views: v.Views}
}

func (v Failed) entry(id string) Entry {
	return Entry{ID: id, Error: v.Error}
}

func (v Duplicate) entry(id string) Entry {
	return Entry{ID: id, SimilarURL: v.SimilarURL}
}

func (v Rejected) entry(id string) Entry {
	return Entry{ID: id, RejectReason: v.Reason}
}

// EntryFor строит запись отчета для объявления id по вердикту.
func EntryFor(id string, v Verdict) Entry {
	return v.entry(id)
}
