// Package report aggregates what a lookup actually did: pages fetched,
// failures, blocks, and what came out the other end.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/prospectops/mailscout/internal/finder"
	"github.com/prospectops/mailscout/internal/storage"
)

// Summary aggregates one lookup's crawl activity and outcome.
type Summary struct {
	Company      string
	Domain       string
	EmailsFound  int
	Guessed      bool
	PagesFetched int
	FetchErrors  int
	Blocked      int
	BlockedBy    map[string]int
	StatusCodes  map[int]int
	TotalBytes   int64
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// Summarize aggregates the fetch results of a lookup together with its final
// outcome.
func Summarize(res finder.Result, fetches []*storage.FetchResult) Summary {
	s := Summary{
		Company:     res.Company,
		Domain:      res.Domain,
		EmailsFound: len(res.Emails),
		Guessed:     res.Guessed,
		BlockedBy:   make(map[string]int),
		StatusCodes: make(map[int]int),
	}

	if len(fetches) == 0 {
		return s
	}

	s.StartTime = fetches[0].CreatedAt
	s.EndTime = fetches[0].CreatedAt

	for _, f := range fetches {
		s.PagesFetched++
		if f.Error != "" {
			s.FetchErrors++
		}
		if f.Blocked {
			s.Blocked++
			s.BlockedBy[f.BlockedBy]++
		}
		if f.StatusCode > 0 {
			s.StatusCodes[f.StatusCode]++
		}
		s.TotalBytes += int64(len(f.Body))

		if f.CreatedAt.Before(s.StartTime) {
			s.StartTime = f.CreatedAt
		}
		if f.CreatedAt.After(s.EndTime) {
			s.EndTime = f.CreatedAt
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to w as indented JSON.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable summary to w.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Lookup Summary
--------------
Company:       {{.Company}}
Domain:        {{.Domain}}
Emails Found:  {{.EmailsFound}}{{if .Guessed}} (guessed){{end}}

Pages Fetched: {{.PagesFetched}}
Total Bytes:   {{.TotalBytes}} bytes
Fetch Errors:  {{.FetchErrors}}
Duration:      {{.Duration}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Blocked: {{.Blocked}}
{{- range $src, $count := .BlockedBy}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
