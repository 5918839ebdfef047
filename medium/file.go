package medium

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tailored-agentic-units/tickstore/address"
)

// FileMedium stores one JSON document per record under root, at
// <root>/<x>/<z>/<y>.json. Regions are always available.
type FileMedium struct {
	root string
}

// NewFileMedium creates a FileMedium rooted at root. The directory is
// created lazily on first write.
func NewFileMedium(root string) *FileMedium {
	return &FileMedium{root: root}
}

func (s *FileMedium) ReadRecord(ctx context.Context, pos address.Position) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.load(pos)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, pos, err)
	}
	return rec, nil
}

func (s *FileMedium) ActivateRegion(ctx context.Context, _ address.Position) error {
	return ctx.Err()
}

func (s *FileMedium) CreateRecord(ctx context.Context, pos address.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(pos)); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	if err := s.save(pos, &Record{}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	return nil
}

func (s *FileMedium) WriteSlot(ctx context.Context, pos address.Position, slot int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSlot(slot); err != nil {
		return fmt.Errorf("%w: %s slot %d: %v", ErrWriteFailed, pos, slot, err)
	}

	rec, err := s.load(pos)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	if rec == nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, ErrNoRecord)
	}
	rec.set(slot, value)

	if err := s.save(pos, rec); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, err)
	}
	return nil
}

// Close is a no-op; it lets FileMedium serve as a Backend.
func (s *FileMedium) Close() error {
	return nil
}

func (s *FileMedium) path(pos address.Position) string {
	return filepath.Join(s.root,
		strconv.Itoa(pos.X),
		strconv.Itoa(pos.Z),
		strconv.Itoa(pos.Y)+".json",
	)
}

func (s *FileMedium) load(pos address.Position) (*Record, error) {
	data, err := os.ReadFile(s.path(pos))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *FileMedium) save(pos address.Position, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	path := s.path(pos)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
