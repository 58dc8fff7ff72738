package domain

// Entry - одна запись XML-отчета. Заполнено ровно одно поле результата:
// URL (вместе с необязательным Views), Error, SimilarURL или RejectReason.
type Entry struct {
	ID           string
	URL          string
	Views        any
	Error        string
	SimilarURL   string
	RejectReason string
}

// Statistics - счетчики импорта. Total равен сумме Success, Rejected и Errors.
type Statistics struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Rejected int `json:"rejected"`
	Errors   int `json:"errors"`
}

// Count увеличивает счетчик, соответствующий исходу.
func (s *Statistics) Count(o Outcome) {
	switch o {
	case OutcomeSuccess:
		s.Success++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeErrors:
		s.Errors++
	}
}

// Report - итог импорта, передается в обработчик завершения.
type Report struct {
	Location   string     `json:"location"`
	Statistics Statistics `json:"statistics"`
}
