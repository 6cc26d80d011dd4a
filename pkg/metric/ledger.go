/*
 * MIT License
 *
 * Copyright (c) 2023 EASL and the vHive community
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package metric

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/vhive-serverless/sensorcheck/pkg/verdict"
)

// ReadLedger loads every row of the ledger. A missing, empty or header-only
// file holds no rows.
func ReadLedger(path string) ([]*LedgerRecord, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// empty or header only
	if !bytes.Contains(bytes.TrimSpace(content), []byte("\n")) {
		return nil, nil
	}

	var records []*LedgerRecord
	if err := gocsv.UnmarshalBytes(content, &records); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	return records, nil
}

// AppendResult adds one row to the ledger, creating it with its header when needed.
// The whole file is rewritten; one harness instance writes a ledger at a time.
func AppendResult(path string, result verdict.TestResult) error {
	records, err := ReadLedger(path)
	if err != nil {
		return err
	}

	records = append(records, NewLedgerRecord(result))
	if err := writeLedger(path, records); err != nil {
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}

	log.Debugf("Appended %s result of %s to %s (%d rows).", result.Verdict, result.SerialNumber, path, len(records))
	return nil
}

func writeLedger(path string, records []*LedgerRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := gocsv.MarshalFile(&records, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
