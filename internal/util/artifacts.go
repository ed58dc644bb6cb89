package util

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONAtomic writes v as indented JSON via a temp file and rename, so a
// quiz report is never observable half-written.
func WriteJSONAtomic(path string, v any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp report: %w", err)
	}
	return nil
}

// WriteJSONLinesAtomic writes rows as one JSON object per line, with the same
// temp-file-and-rename discipline as WriteJSONAtomic.
func WriteJSONLinesAtomic(path string, rows []any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "report-*.jsonl")
	if err != nil {
		return fmt.Errorf("create temp jsonl: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			_ = tmp.Close()
			return fmt.Errorf("marshal jsonl row: %w", err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write jsonl row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush jsonl: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp jsonl: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp jsonl: %w", err)
	}
	return nil
}
