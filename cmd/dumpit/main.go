package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/internal/dbg"
	"github.com/peter-kozarec/pairs/pkg/datasource/historical"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	time.DateTime,
	time.DateOnly,
}

func parseTimeStamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if nanos, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(0, nanos).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// readCloses parses a "ts,close" CSV with a header row.
func readCloses(r io.Reader) ([]historical.BinaryClose, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}

	var closes []historical.BinaryClose
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected ts,close got %d fields", line, len(record))
		}

		ts, err := parseTimeStamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("line %d: invalid close %q", line, record[1])
		}

		closes = append(closes, historical.BinaryClose{TimeStamp: ts.UnixNano(), Close: price})
	}
	return closes, nil
}

// normalize sorts by time and keeps the last close of any repeated timestamp.
func normalize(closes []historical.BinaryClose) []historical.BinaryClose {
	sort.SliceStable(closes, func(i, j int) bool { return closes[i].TimeStamp < closes[j].TimeStamp })

	out := closes[:0]
	for _, c := range closes {
		if n := len(out); n > 0 && out[n-1].TimeStamp == c.TimeStamp {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

func dumpAll(logger *zap.Logger, symbol, outDir string, csvPaths []string) error {
	var all []historical.BinaryClose
	for _, path := range csvPaths {
		closes, err := readFile(path)
		if err != nil {
			return err
		}
		logger.Info("csv parsed", zap.String("symbol", symbol), zap.String("file", path), zap.Int("closes", len(closes)))
		all = append(all, closes...)
	}
	all = normalize(all)

	binPath := filepath.Join(outDir, symbol+".bin")
	binFile, err := os.Create(binPath)
	if err != nil {
		return err
	}
	if err := historical.WriteCloses(binFile, all...); err != nil {
		_ = binFile.Close()
		_ = os.Remove(binPath)
		return err
	}
	if err := binFile.Close(); err != nil {
		return err
	}

	logger.Info("dump finished", zap.String("symbol", symbol), zap.String("file", binPath), zap.Int("closes", len(all)))
	return nil
}

func readFile(path string) ([]historical.BinaryClose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	closes, err := readCloses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return closes, nil
}

func main() {
	symbol := flag.String("symbol", "", "symbol")
	outDir := flag.String("out", ".", "output directory")
	flag.Parse()

	logger := dbg.NewDevLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if *symbol == "" || flag.NArg() == 0 {
		logger.Error("usage: dumpit -symbol SPY [-out dir] file.csv...")
		os.Exit(2)
	}
	if err := dumpAll(logger, strings.ToUpper(*symbol), *outDir, flag.Args()); err != nil {
		logger.Error("failed to dump", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("done")
}
