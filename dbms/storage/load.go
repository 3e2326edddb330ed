package storage

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// LoadResult is what ReadRecords recovered from a games file.
type LoadResult struct {
	Records []Record
	Skipped int // data rows dropped for missing or malformed fields
}

// LoadRecords reads a tab-separated games file; see ReadRecords.
func LoadRecords(path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, errors.Wrap(err, "storage: open records")
	}
	defer f.Close()
	res, err := ReadRecords(f)
	return res, errors.Wrapf(err, "storage: %s", path)
}

// ReadRecords parses tab-separated game rows. The first row is a header.
// Rows with fewer than NumFields columns or unparsable values are skipped
// and counted.
func ReadRecords(r io.Reader) (LoadResult, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var res LoadResult
	header := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, errors.Wrap(err, "read row")
		}
		if header {
			header = false
			continue
		}
		rec, err := parseFields(row)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
}
