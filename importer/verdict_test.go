package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyimport/domain"
)

func TestClassifyReply(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    domain.Verdict
		wantErr string
	}{
		{"url with views", map[string]any{"url": "http://x/1", "views": 15}, domain.Placed{URL: "http://x/1", Views: 15}, ""},
		{"url without views", map[string]any{"url": "http://x/1"}, domain.Placed{URL: "http://x/1"}, ""},
		{"url wins over error", map[string]any{"url": "http://x/1", "error": "e"}, domain.Placed{URL: "http://x/1"}, ""},
		{"error", map[string]any{"error": "Что-то плохое случилось"}, domain.Failed{Error: "Что-то плохое случилось"}, ""},
		{"similar url", map[string]any{"similarUrl": "http://x/2"}, domain.Duplicate{SimilarURL: "http://x/2"}, ""},
		{"reject reason", map[string]any{"rejectReason": "no price"}, domain.Rejected{Reason: "no price"}, ""},
		{"string map", map[string]string{"url": "http://x/1", "views": "7"}, domain.Placed{URL: "http://x/1", Views: "7"}, ""},
		{"empty url skipped", map[string]any{"url": "", "error": "e"}, domain.Failed{Error: "e"}, ""},
		{"zero views kept", map[string]any{"url": "http://x/1", "views": 0}, domain.Placed{URL: "http://x/1", Views: 0}, ""},
		{"empty views kept", map[string]any{"url": "http://x/1", "views": ""}, domain.Placed{URL: "http://x/1", Views: ""}, ""},
		{"nil views", map[string]any{"url": "http://x/1", "views": nil}, domain.Placed{URL: "http://x/1"}, ""},
		{"typed placed", domain.Placed{URL: "http://x/1"}, domain.Placed{URL: "http://x/1"}, ""},
		{"typed rejected", domain.Rejected{Reason: "r"}, domain.Rejected{Reason: "r"}, ""},

		{"nil", nil, nil, MsgNotObject},
		{"nil map", map[string]any(nil), nil, MsgNotObject},
		{"string", "ok", nil, MsgNotObject},
		{"number", 42, nil, MsgNotObject},
		{"url not string", map[string]any{"url": 123}, nil, MsgURLNotString},
		{"error not string", map[string]any{"error": true}, nil, MsgErrorNotString},
		{"similar not string", map[string]any{"similarUrl": []string{"a"}}, nil, MsgSimilarNotString},
		{"reject not string", map[string]any{"rejectReason": 1.5}, nil, MsgRejectNotString},
		{"empty object", map[string]any{}, nil, MsgUnexpectedData},
		{"unknown field", map[string]any{"status": "ok"}, nil, MsgUnexpectedData},
		{"only views", map[string]any{"views": 15}, nil, MsgUnexpectedData},
		{"typed empty", domain.Failed{}, nil, MsgUnexpectedData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyReply(tt.data)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrProtocol))
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyReply_OneOutcomePerVerdict(t *testing.T) {
	replies := []any{
		map[string]any{"url": "u"},
		map[string]any{"error": "e"},
		map[string]any{"similarUrl": "s"},
		map[string]any{"rejectReason": "r"},
	}
	var stats domain.Statistics
	for _, r := range replies {
		v, err := ClassifyReply(r)
		require.NoError(t, err)
		stats.Count(v.Outcome())
		stats.Total++
	}
	assert.Equal(t, domain.Statistics{Total: 4, Success: 1, Rejected: 2, Errors: 1}, stats)
}
