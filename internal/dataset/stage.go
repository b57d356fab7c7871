package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Stage пишет артефакты во временные файлы рядом с целевыми и переименовывает
// их только в Commit. Abort удаляет все временные файлы.
// Write безопасен для одновременного вызова из нескольких горутин.
type Stage struct {
	mu    sync.Mutex
	files []stagedFile
}

type stagedFile struct {
	tmp   string
	final string
}

// NewStage создает пустую стадию
func NewStage() *Stage {
	return &Stage{}
}

// Write кодирует артефакт во временный файл
func (s *Stage) Write(path string, encode func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}

	// bufio.Writer не реализует io.Closer, поэтому кодировщик не закроет файл сам
	bw := bufio.NewWriter(f)
	err = encode(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.mu.Lock()
	s.files = append(s.files, stagedFile{tmp: f.Name(), final: path})
	s.mu.Unlock()
	return nil
}

// Commit переносит артефакты на место и возвращает их пути в порядке записи.
// Прежние версии сначала откладываются в резервные копии; если какой-либо
// перенос не удался, новые файлы удаляются, а прежние возвращаются на место.
func (s *Stage) Commit() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.files
	s.files = nil

	var backups []backup
	for _, f := range files {
		bak := f.tmp + ".bak"
		err := os.Rename(f.final, bak)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			restore(backups)
			removeTemps(files)
			return nil, fmt.Errorf("back up %s: %w", f.final, err)
		}
		backups = append(backups, backup{final: f.final, bak: bak})
	}

	paths := make([]string, 0, len(files))
	for i, f := range files {
		if err := os.Rename(f.tmp, f.final); err != nil {
			for _, done := range files[:i] {
				os.Remove(done.final)
			}
			removeTemps(files[i:])
			restore(backups)
			return nil, fmt.Errorf("commit %s: %w", f.final, err)
		}
		paths = append(paths, f.final)
	}

	for _, b := range backups {
		os.Remove(b.bak)
	}
	return paths, nil
}

type backup struct {
	final string
	bak   string
}

func restore(backups []backup) {
	for _, b := range backups {
		os.Rename(b.bak, b.final)
	}
}

func removeTemps(files []stagedFile) {
	for _, f := range files {
		os.Remove(f.tmp)
	}
}

// Abort удаляет временные файлы
func (s *Stage) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, f := range s.files {
		if err := os.Remove(f.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

// WriteFile атомарно записывает один артефакт
func WriteFile(path string, encode func(w io.Writer) error) error {
	s := NewStage()
	if err := s.Write(path, encode); err != nil {
		return err
	}
	_, err := s.Commit()
	return err
}
