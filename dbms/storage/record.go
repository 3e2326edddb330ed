// Package storage packs game records into fixed-size blocks of a heap file
// and counts block accesses, so index lookups can be compared with a full
// scan in simulated I/O.
package storage

import (
	"math"
	"strconv"
	"strings"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/cockroachdb/errors"
)

// NumFields is the number of columns in a game row.
const NumFields = 9

var _ index.Keyed = Record{}

// Record is one home-team game row.
type Record struct {
	GameDate     string
	TeamIDHome   int64
	PtsHome      int
	FGPctHome    float64
	FTPctHome    float64
	FG3PctHome   float64
	AstHome      int
	RebHome      int
	HomeTeamWins int
}

// Key is the indexed attribute, the home field-goal percentage.
func (r Record) Key() float64 { return r.FGPctHome }

// Serialize renders the record as one comma-separated line.
func (r Record) Serialize() string {
	return strings.Join([]string{
		r.GameDate,
		strconv.FormatInt(r.TeamIDHome, 10),
		strconv.Itoa(r.PtsHome),
		formatFloat(r.FGPctHome),
		formatFloat(r.FTPctHome),
		formatFloat(r.FG3PctHome),
		strconv.Itoa(r.AstHome),
		strconv.Itoa(r.RebHome),
		strconv.Itoa(r.HomeTeamWins),
	}, ",")
}

// Size is the number of bytes the serialized record occupies.
func (r Record) Size() int { return len(r.Serialize()) }

// ParseRecord is the inverse of Serialize.
func ParseRecord(line string) (Record, error) {
	return parseFields(strings.Split(line, ","))
}

func parseFields(f []string) (Record, error) {
	if len(f) < NumFields {
		return Record{}, errors.Newf("storage: %d fields, want %d", len(f), NumFields)
	}
	var (
		r    Record
		errs error
	)
	r.GameDate = strings.TrimSpace(f[0])
	if r.GameDate == "" {
		errs = errors.CombineErrors(errs, errors.New("storage: empty game date"))
	}
	r.TeamIDHome, errs = parseInt64(f[1], "TEAM_ID_home", errs)
	r.PtsHome, errs = parseInt(f[2], "PTS_home", errs)
	r.FGPctHome, errs = parseFloat(f[3], "FG_PCT_home", errs)
	r.FTPctHome, errs = parseFloat(f[4], "FT_PCT_home", errs)
	r.FG3PctHome, errs = parseFloat(f[5], "FG3_PCT_home", errs)
	r.AstHome, errs = parseInt(f[6], "AST_home", errs)
	r.RebHome, errs = parseInt(f[7], "REB_home", errs)
	r.HomeTeamWins, errs = parseInt(f[8], "HOME_TEAM_WINS", errs)
	return r, errs
}

func parseInt64(s, col string, errs error) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "storage: %s", col))
	}
	return v, errs
}

func parseInt(s, col string, errs error) (int, error) {
	v, errs := parseInt64(s, col, errs)
	return int(v), errs
}

func parseFloat(s, col string, errs error) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err == nil && math.IsNaN(v) {
		err = errors.New("NaN")
	}
	if err != nil {
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "storage: %s", col))
	}
	return v, errs
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
