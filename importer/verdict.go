package importer

import (
	"math"
	"reflect"

	"realtyimport/domain"
)

// ClassifyReply превращает ответ обработчика в вердикт.
//
// Поля ответа проверяются в порядке url, error, similarUrl, rejectReason;
// выигрывает первое непустое. Пустые значения ("", 0, false, nil)
// считаются отсутствующими. Исключение - views: значение переносится
// в отчет как есть, отсутствующим считается только nil. Кроме map[string]any и map[string]string
// принимаются готовые значения domain.Placed, domain.Failed,
// domain.Duplicate и domain.Rejected.
func ClassifyReply(data any) (domain.Verdict, error) {
	switch v := data.(type) {
	case nil:
		return nil, protocolError(MsgNotObject)
	case domain.Placed:
		return requireField(v, v.URL)
	case domain.Failed:
		return requireField(v, v.Error)
	case domain.Duplicate:
		return requireField(v, v.SimilarURL)
	case domain.Rejected:
		return requireField(v, v.Reason)
	case map[string]string:
		if v == nil {
			return nil, protocolError(MsgNotObject)
		}
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return classifyMap(m)
	case map[string]any:
		if v == nil {
			return nil, protocolError(MsgNotObject)
		}
		return classifyMap(v)
	default:
		return nil, protocolError(MsgNotObject)
	}
}

func requireField(v domain.Verdict, field string) (domain.Verdict, error) {
	if field == "" {
		return nil, protocolError(MsgUnexpectedData)
	}
	return v, nil
}

func classifyMap(m map[string]any) (domain.Verdict, error) {
	if raw, ok := field(m, "url"); ok {
		s, ok := raw.(string)
		if !ok {
			return nil, protocolError(MsgURLNotString)
		}
		return domain.Placed{URL: s, Views: m["views"]}, nil
	}
	if raw, ok := field(m, "error"); ok {
		s, ok := raw.(string)
		if !ok {
			return nil, protocolError(MsgErrorNotString)
		}
		return domain.Failed{Error: s}, nil
	}
	if raw, ok := field(m, "similarUrl"); ok {
		s, ok := raw.(string)
		if !ok {
			return nil, protocolError(MsgSimilarNotString)
		}
		return domain.Duplicate{SimilarURL: s}, nil
	}
	if raw, ok := field(m, "rejectReason"); ok {
		s, ok := raw.(string)
		if !ok {
			return nil, protocolError(MsgRejectNotString)
		}
		return domain.Rejected{Reason: s}, nil
	}
	return nil, protocolError(MsgUnexpectedData)
}

// field возвращает значение ключа, если оно есть и не пустое.
func field(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || isEmpty(v) {
		return nil, false
	}
	return v, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0 || math.IsNaN(t)
	case float32:
		return t == 0 || math.IsNaN(float64(t))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
