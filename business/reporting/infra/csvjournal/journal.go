// Package csvjournal appends journal rows to CSV files.
package csvjournal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"sync"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// file is one append-only CSV file. The header is written only when the
// file is empty at open time.
type file struct {
	mu sync.Mutex
	f  *os.File
}

func openFile(path string, header []string) (*file, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	out := &file{f: f}
	if info.Size() == 0 {
		if err := out.append(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return out, nil
}

// append writes row with a single write call so concurrent writers never
// interleave partial lines.
func (c *file) append(row []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.f.Write(buf.Bytes())
	return err
}

func (c *file) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}

// Journal writes trades and debug rows to two CSV files.
type Journal struct {
	trades   *file
	debug    *file
	decimals uint8
}

var _ app.Journal = (*Journal)(nil)

// Open opens or creates both files.
func Open(tradesPath, debugPath string, decimals uint8) (*Journal, error) {
	trades, err := openFile(tradesPath, domain.TradeHeader)
	if err != nil {
		return nil, apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext(tradesPath))
	}
	debug, err := openFile(debugPath, domain.DebugHeader)
	if err != nil {
		trades.close()
		return nil, apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext(debugPath))
	}
	return &Journal{trades: trades, debug: debug, decimals: decimals}, nil
}

func (j *Journal) WriteDebug(_ context.Context, r domain.DebugRecord) error {
	if err := j.debug.append(r.Row(j.decimals)); err != nil {
		return apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext("debug row"))
	}
	return nil
}

func (j *Journal) WriteTrade(_ context.Context, t arbDomain.TradeRecord) error {
	if err := j.trades.append(domain.TradeRow(t, j.decimals)); err != nil {
		return apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext("trade row"))
	}
	return nil
}

func (j *Journal) Close() error {
	return errors.Join(j.trades.close(), j.debug.close())
}
