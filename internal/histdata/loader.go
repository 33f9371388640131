package histdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"btcsim/internal/model"
)

// LoadFairValueCSV reads a "date,close" CSV (header row required) into an
// oracle. A missing or empty file is a configuration error.
func LoadFairValueCSV(path string) (*FairValueOracle, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("fair value schedule %s: %w", path, err)
	}
	points := make([]AnchorPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("fair value schedule %s: bad date %q", path, row[0])
		}
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("fair value schedule %s: bad value %q", path, row[1])
		}
		points = append(points, AnchorPoint{Date: date, Value: value})
	}
	return NewFairValueOracle(points)
}

// LoadHashrateCSV reads a "month,hashrateTHs" CSV (header row required).
// A missing file yields an empty series that falls back to the default.
func LoadHashrateCSV(path string) (*HashrateSeries, error) {
	rows, err := readCSV(path)
	if os.IsNotExist(err) {
		return NewHashrateSeries(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("hashrate series %s: %w", path, err)
	}
	byMonth := make(map[string]float64, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("hashrate series %s: bad value %q", path, row[1])
		}
		month := row[0]
		if len(month) > 7 {
			month = month[:7]
		}
		byMonth[month] = value
	}
	return NewHashrateSeries(byMonth), nil
}

// LoadEventsJSON reads the dated event schedule. A missing file yields an
// empty schedule. Events are returned sorted by date.
func LoadEventsJSON(path string) ([]model.ScheduledEvent, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event schedule %s: %w", path, err)
	}
	var events []model.ScheduledEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("event schedule %s: %w", path, err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

// readCSV returns all data rows of a CSV file, skipping the header.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}
