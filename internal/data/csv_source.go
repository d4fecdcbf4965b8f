package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkquant/equity-backtest/internal/calendar"
	"github.com/hkquant/equity-backtest/pkg/types"
)

// CSVColumnMapping describes where each candle field lives in a CSV row
// and how timestamps are encoded.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	TurnoverCol  int // -1 when the file has no turnover column
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches the exporter's layout:
// timestamp,open,high,low,close,volume,turnover.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	TurnoverCol:  6,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// CSVSource serves candles and corporate actions from per-symbol CSV
// files under a data directory:
//
//	<dir>/<symbol>_<interval>.csv          candles
//	<dir>/<symbol>_actions.csv             corporate actions (optional)
//
// Malformed rows are skipped with a warning rather than failing the
// whole load; the downstream validator and quality gate decide whether
// what remains is usable.
type CSVSource struct {
	dir    string
	format CSVColumnMapping
	log    zerolog.Logger
}

// NewCSVSource creates a source over dir with the default column layout.
func NewCSVSource(dir string, log zerolog.Logger) *CSVSource {
	return &CSVSource{dir: dir, format: DefaultCSVFormat, log: log}
}

// WithFormat overrides the column layout.
func (s *CSVSource) WithFormat(format CSVColumnMapping) *CSVSource {
	s.format = format
	return s
}

// FetchCandles implements Source.
func (s *CSVSource) FetchCandles(ctx context.Context, symbol string, interval types.Interval, start, end int64) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header.
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var out []types.Candle
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line+1, err)
		}
		line++

		c, ok := s.parseCandle(record, symbol, path, line)
		if !ok {
			continue
		}
		ts := c.Timestamp.Unix()
		if ts < start || ts > end {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *CSVSource) parseCandle(record []string, symbol, path string, line int) (types.Candle, bool) {
	f := s.format
	if len(record) < f.MinColumns {
		s.log.Warn().Str("file", path).Int("line", line).
			Int("columns", len(record)).Msg("row has too few columns, skipping")
		return types.Candle{}, false
	}

	ts, err := time.ParseInLocation(f.DateFormat, record[f.TimestampCol], calendar.HongKong)
	if err != nil {
		s.log.Warn().Str("file", path).Int("line", line).Err(err).Msg("bad timestamp, skipping row")
		return types.Candle{}, false
	}

	fields := [5]float64{}
	for i, col := range [5]int{f.OpenCol, f.HighCol, f.LowCol, f.CloseCol, f.VolumeCol} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			s.log.Warn().Str("file", path).Int("line", line).Err(err).Msg("bad numeric field, skipping row")
			return types.Candle{}, false
		}
		fields[i] = v
	}

	c := types.Candle{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}
	if f.TurnoverCol >= 0 && len(record) > f.TurnoverCol {
		if v, err := strconv.ParseFloat(strings.TrimSpace(record[f.TurnoverCol]), 64); err == nil {
			c.Turnover = v
		}
	}
	return c, true
}

// FetchCorporateActions implements Source. A missing actions file means
// no known actions, not an error.
func (s *CSVSource) FetchCorporateActions(ctx context.Context, symbol string) ([]types.CorporateAction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_actions.csv", symbol))
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open actions file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var out []types.CorporateAction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line+1, err)
		}
		line++

		a, ok := s.parseAction(record, symbol, path, line)
		if !ok {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Actions file layout: ex_date,kind,v1,v2,v3 where the value columns
// depend on the kind:
//
//	DIVIDEND      v1=cash per share
//	SPLIT         v1=base, v2=ratio
//	MERGE         v1=base, v2=ratio
//	BONUS         v1=base, v2=ratio
//	RIGHTS_ISSUE  v1=base, v2=ratio, v3=subscription price
func (s *CSVSource) parseAction(record []string, symbol, path string, line int) (types.CorporateAction, bool) {
	if len(record) < 3 {
		s.log.Warn().Str("file", path).Int("line", line).Msg("action row has too few columns, skipping")
		return types.CorporateAction{}, false
	}

	exDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(record[0]), calendar.HongKong)
	if err != nil {
		s.log.Warn().Str("file", path).Int("line", line).Err(err).Msg("bad ex-date, skipping action")
		return types.CorporateAction{}, false
	}

	num := func(i int) float64 {
		if i >= len(record) {
			return 0
		}
		v, _ := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		return v
	}

	a := types.CorporateAction{
		Symbol: symbol,
		ExDate: exDate,
		Kind:   types.ActionKind(strings.ToUpper(strings.TrimSpace(record[1]))),
	}
	switch a.Kind {
	case types.ActionDividend:
		a.Dividend = num(2)
	case types.ActionSplit:
		a.SplitBase, a.SplitRatio = num(2), num(3)
	case types.ActionMerge:
		a.JoinBase, a.JoinRatio = num(2), num(3)
	case types.ActionBonus:
		a.BonusBase, a.BonusRatio = num(2), num(3)
	case types.ActionRightsIssue:
		a.RightsBase, a.RightsRatio, a.RightsPrice = num(2), num(3), num(4)
	default:
		s.log.Warn().Str("file", path).Int("line", line).
			Str("kind", string(a.Kind)).Msg("unknown action kind, skipping")
		return types.CorporateAction{}, false
	}
	return a, true
}
