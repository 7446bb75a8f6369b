package keystore

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/dverholt/agentward/internal/redact"
)

// auditLogger appends newline-delimited JSON entries to an append-only file.
// Details are redacted before encoding so key material can never leak into
// the trail, even via error messages.
type auditLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func newAuditLogger(path string) (*auditLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &auditLogger{file: f, path: path}, nil
}

func (l *auditLogger) Append(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Detail = redact.Redact(entry.Detail)
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

// Read returns up to limit entries, newest last, optionally filtered by key id.
func (l *auditLogger) Read(keyID string, limit int) ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // a torn line must not poison the whole read
		}
		if keyID != "" && e.KeyID != keyID {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (l *auditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
