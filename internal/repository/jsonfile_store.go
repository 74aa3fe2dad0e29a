package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fjod/go_pizza/internal/domain"
)

// JSONFileStore keeps orders in one human-readable JSON array on disk.
// The file is rewritten wholesale on every write, through a temp file and a
// rename, so a crash never leaves a half-written array behind.
type JSONFileStore struct {
	*MemoryStore
	path string
}

// NewJSONFileStore loads path (a missing file is an empty collection) and
// returns a store that writes every change back to it.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	orders, err := readOrdersFile(path)
	if err != nil {
		return nil, err
	}

	mem := NewMemoryStore()
	for _, order := range orders {
		if _, dup := mem.orders[order.ID]; dup {
			return nil, fmt.Errorf("orders file %s: duplicate id %d", path, order.ID)
		}
		mem.orders[order.ID] = order
		if order.ID > mem.nextID {
			mem.nextID = order.ID
		}
	}

	s := &JSONFileStore{MemoryStore: mem, path: path}
	mem.persist = s.write
	return s, nil
}

func readOrdersFile(path string) ([]*domain.Order, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var orders []*domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode orders file %s: %w", path, err)
	}
	for _, order := range orders {
		if !order.Status.Valid() {
			return nil, fmt.Errorf("orders file %s: order %d: %w: %q", path, order.ID, domain.ErrUnknownState, order.Status)
		}
		if err := order.CheckTotal(); err != nil {
			return nil, fmt.Errorf("orders file %s: %w", path, err)
		}
	}
	return orders, nil
}

func (s *JSONFileStore) write(orders []*domain.Order) error {
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create orders dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp orders file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp orders file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp orders file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp orders file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace orders file: %w", err)
	}
	return nil
}
