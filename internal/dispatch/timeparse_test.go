package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeExtractorExtract(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		layout string
		url    string
		want   time.Time
	}{
		{
			name:   "partitioned path",
			marker: "date=",
			layout: "2006-01-02",
			url:    "https://acct.blob.core.windows.net/raw/date=2023-06-01/part-0.json",
			want:   time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "marker absent",
			marker: "date=",
			layout: "2006-01-02",
			url:    "https://acct.blob.core.windows.net/raw/part-0.json",
			want:   time.Time{},
		},
		{
			name:   "garbage after marker",
			marker: "date=",
			layout: "2006-01-02",
			url:    "https://acct.blob.core.windows.net/raw/date=notadate/part-0.json",
			want:   time.Time{},
		},
		{
			name:   "candidate shorter than layout",
			marker: "date=",
			layout: "2006-01-02",
			url:    "https://acct.blob.core.windows.net/raw/date=2023",
			want:   time.Time{},
		},
		{
			name:   "first occurrence wins",
			marker: "date=",
			layout: "2006-01-02",
			url:    "https://acct.blob.core.windows.net/raw/date=2021-01-01/nested/date=2023-06-01/p.json",
			want:   time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "exactly layout length remains",
			marker: "dt=",
			layout: "20060102",
			url:    "bucket/dt=20230601",
			want:   time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "empty marker",
			marker: "",
			layout: "2006-01-02",
			url:    "bucket/2023-06-01/p.json",
			want:   time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewTimeExtractor(tt.marker, tt.layout, nil)
			got := e.Extract(tt.url)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestTimeExtractorIsPure(t *testing.T) {
	e := NewTimeExtractor("date=", "2006-01-02", nil)
	url := "raw/date=2023-06-01/part-0.json"

	first := e.Extract(url)
	for range 5 {
		assert.Equal(t, first, e.Extract(url))
	}
}

func TestSentinelOrdersBeforeAnyCutoff(t *testing.T) {
	e := NewTimeExtractor("date=", "2006-01-02", nil)
	sentinel := e.Extract("no-marker-here")

	cutoff := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, sentinel.Before(cutoff))
}
