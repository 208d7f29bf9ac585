package csvbackend

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prospectops/mailscout/internal/storage"
)

var _ storage.Backend = (*csvBackend)(nil)

// csvBackend appends fetch audit records to a CSV file. Queries re-read the
// whole file; this sink is for small audit trails, not analytics.
type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order.
var headers = []string{
	"id",
	"lookup",
	"url",
	"status_code",
	"headers_json",
	"body_base64",
	"duration_ms",
	"blocked",
	"blocked_by",
	"created_at",
	"error",
}

// New creates a CSV-backed storage.Backend, creating the file and writing the
// header row if it does not exist yet.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv audit file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv audit file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, result *storage.FetchResult) error {
	headersJSON, err := json.Marshal(result.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	record := []string{
		result.ID,
		result.Lookup,
		result.URL,
		strconv.Itoa(result.StatusCode),
		string(headersJSON),
		base64.StdEncoding.EncodeToString(result.Body),
		strconv.FormatInt(result.Duration.Milliseconds(), 10),
		strconv.FormatBool(result.Blocked),
		result.BlockedBy,
		result.CreatedAt.Format(time.RFC3339Nano),
		result.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek csv audit file: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv record: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.FetchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek csv audit file: %w", err)
	}
	defer func() {
		// Restore the pointer to the end for subsequent appends.
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.FetchResult{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var allFiltered []*storage.FetchResult

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		statusCode, _ := strconv.Atoi(record[3])
		var respHeaders map[string][]string
		if err := json.Unmarshal([]byte(record[4]), &respHeaders); err != nil {
			respHeaders = map[string][]string{}
		}
		body, _ := base64.StdEncoding.DecodeString(record[5])
		durationMs, _ := strconv.ParseInt(record[6], 10, 64)
		blocked, _ := strconv.ParseBool(record[7])
		createdAt, _ := time.Parse(time.RFC3339Nano, record[9])

		res := &storage.FetchResult{
			ID:         record[0],
			Lookup:     record[1],
			URL:        record[2],
			StatusCode: statusCode,
			Headers:    respHeaders,
			Body:       body,
			Duration:   time.Duration(durationMs) * time.Millisecond,
			Blocked:    blocked,
			BlockedBy:  record[8],
			CreatedAt:  createdAt,
			Error:      record[10],
		}

		if filter.Lookup != "" && res.Lookup != filter.Lookup {
			continue
		}
		if filter.URL != "" && res.URL != filter.URL {
			continue
		}
		if filter.Blocked != nil && res.Blocked != *filter.Blocked {
			continue
		}
		if filter.Since != nil && res.CreatedAt.Before(*filter.Since) {
			continue
		}

		allFiltered = append(allFiltered, res)
	}

	// Order by created_at DESC (reverse the slice).
	for i, j := 0, len(allFiltered)-1; i < j; i, j = i+1, j-1 {
		allFiltered[i], allFiltered[j] = allFiltered[j], allFiltered[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*storage.FetchResult{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
