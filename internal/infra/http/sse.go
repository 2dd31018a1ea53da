package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"echoly/internal/domain"
)

// ErrStreamingUnsupported возвращается, если ResponseWriter не умеет flush.
var ErrStreamingUnsupported = errors.New("sse: streaming не поддерживается")

// Stream реализует domain.EventSink поверх однонаправленного
// server-sent-events соединения. Каждое событие — отдельная запись
// вида "data: <JSON>\n\n", сбрасываемая клиенту немедленно.
type Stream struct {
	mu sync.Mutex
	w  http.ResponseWriter
	fl http.Flusher
}

var _ domain.EventSink = (*Stream)(nil)

// NewStream настраивает SSE-заголовки и открывает поток.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	return &Stream{w: w, fl: fl}, nil
}

// Send сериализует событие и сбрасывает его клиенту.
func (s *Stream) Send(ev domain.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	s.fl.Flush()
	return nil
}

var recordDelimiter = []byte("\n\n")

// ReadEvents декодирует поток событий целиком. Читает побайтово поступающие
// куски и накапливает их до полного разделителя записи: событие может быть
// разрезано на несколько чтений нижележащим транспортом.
func ReadEvents(r io.Reader) ([]domain.ProgressEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	scanner.Split(splitRecords)

	var events []domain.ProgressEvent
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		raw = bytes.TrimPrefix(raw, []byte("data:"))
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var ev domain.ProgressEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return events, fmt.Errorf("sse: decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, err
	}
	return events, nil
}

func splitRecords(data []byte, atEOF bool) (int, []byte, error) {
	if idx := bytes.Index(data, recordDelimiter); idx >= 0 {
		return idx + len(recordDelimiter), data[:idx], nil
	}
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}
	return 0, nil, nil
}
