package poimodel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
)

// LoadFromFile reads a POI dataset from a CSV file, transparently
// decompressing ".zst" inputs. Expected columns:
//
//	id,name,lat,lng,genre,origin[,key=value...]
//
// Malformed rows are an error here, not inside the engine; by the time a
// POI list reaches the clustering pipeline every position must be valid.
func LoadFromFile(name string, log *slog.Logger) ([]POI, error) {
	if log == nil {
		log = slog.Default()
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open points file: %w", err)
	}
	defer file.Close()

	var bar *pb.ProgressBar
	var r io.Reader = file
	if fi, err := file.Stat(); err == nil && fi.Size() > 0 {
		bar = pb.Full.Start64(fi.Size())
		r = bar.NewProxyReader(file)
	}

	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	pois, err := LoadFromReader(r)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	log.Info("loaded poi dataset",
		"file", name,
		"count", humanize.Comma(int64(len(pois))),
	)
	return pois, nil
}

// LoadFromReader parses CSV POI records. A header row starting with "id" is
// skipped. Rows with a blank id get a generated one.
func LoadFromReader(r io.Reader) ([]POI, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var pois []POI
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading poi record: %w", err)
		}
		if line == 1 && len(record) > 0 && record[0] == "id" {
			continue
		}

		poi, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func parseRecord(record []string) (POI, error) {
	if len(record) < 6 {
		return POI{}, fmt.Errorf("expected at least 6 columns, got %d", len(record))
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return POI{}, fmt.Errorf("bad latitude %q: %w", record[2], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return POI{}, fmt.Errorf("bad longitude %q: %w", record[3], err)
	}

	poi := POI{
		ID:     strings.TrimSpace(record[0]),
		Name:   record[1],
		Genre:  record[4],
		Origin: record[5],
		Point:  orb.Point{lng, lat},
	}
	if poi.ID == "" {
		poi.ID = uuid.NewString()
	}

	for _, field := range record[6:] {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		if poi.Details == nil {
			poi.Details = map[string]string{}
		}
		poi.Details[k] = v
	}

	if err := poi.Validate(); err != nil {
		return POI{}, err
	}
	return poi, nil
}
