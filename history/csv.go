package history

import (
	"context"
	"encoding/csv"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// CsvLog appends trades to a CSV file, writing the header when the file is new.
type CsvLog struct {
	lock sync.Mutex
	path string
}

func NewCsvLog(path string) (*CsvLog, error) {
	l := &CsvLog{path: path}
	if _, err := os.Stat(path); err == nil {
		return l, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	w := csv.NewWriter(f)
	if err = w.Write(Header); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}
	w.Flush()
	return l, w.Error()
}

func (l *CsvLog) Path() string {
	return l.path
}

func (l *CsvLog) Append(ctx context.Context, r Record) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return writeRows(f, [][]string{r.Row()})
}

func writeRows(f *os.File, rows [][]string) error {
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}
