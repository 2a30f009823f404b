package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/2beens/fitcrm/internal/telemetry/tracing"
	"github.com/2beens/fitcrm/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ Slot = (*FileSlot)(nil)

// FileSlot stores the blob in <dir>/<name>.json
type FileSlot struct {
	mu   sync.RWMutex
	name string
	path string
}

func NewFileSlot(dir, name string) (*FileSlot, error) {
	if dir == "" {
		return nil, errors.New("storage dir cannot be empty")
	}
	if name == "" {
		return nil, errors.New("slot name cannot be empty")
	}
	if err := pkg.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure storage dir: %w", err)
	}
	return &FileSlot{
		name: name,
		path: filepath.Join(dir, name+".json"),
	}, nil
}

func (s *FileSlot) Name() string {
	return s.name
}

func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Read(ctx context.Context) (_ []byte, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "storage.fileSlot.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.path", s.path))

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("read slot file: %w", err)
	}

	span.SetAttributes(attribute.Int("slot.size", len(data)))
	return data, nil
}

// Write goes through a temp file and a rename, so a reader never sees a half written blob.
func (s *FileSlot) Write(ctx context.Context, data []byte) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "storage.fileSlot.write")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("slot.path", s.path))
	span.SetAttributes(attribute.Int("slot.size", len(data)))

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), s.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp slot file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warnf("remove temp slot file %s: %s", tmpPath, rmErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp slot file: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp slot file: %w", err)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp slot file: %w", err)
	}

	log.Tracef("file slot [%s] written: %d bytes", s.name, len(data))
	return nil
}
