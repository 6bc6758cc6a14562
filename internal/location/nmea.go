package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"scanmap.klederson.com/internal/geo"
)

// ParseNMEA extracts a position from one NMEA line. Only GGA sentences with a
// GPS or DGPS fix and valid RMC sentences carry a position; everything else,
// including sentences with a bad checksum, reports false.
func ParseNMEA(line string) (geo.Point, bool) {
	// Some receivers prefix sentences with noise.
	pos := strings.IndexByte(line, '$')
	if pos == -1 {
		return geo.Point{}, false
	}
	line = strings.TrimSpace(line[pos:])

	sentence, err := nmea.Parse(line)
	if err != nil {
		return geo.Point{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality != nmea.GPS && m.FixQuality != nmea.DGPS {
			return geo.Point{}, false
		}
		return geo.Point{Lat: m.Latitude, Lon: m.Longitude}, true

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return geo.Point{}, false
		}
		return geo.Point{Lat: m.Latitude, Lon: m.Longitude}, true
	}

	return geo.Point{}, false
}

// ReadNMEA reads NMEA lines from r until EOF, a read error or ctx is done,
// emitting every position found.
func ReadNMEA(ctx context.Context, r io.Reader, emit func(geo.Point)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p, ok := ParseNMEA(scanner.Text()); ok {
			emit(p)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read nmea: %w", err)
	}
	return ErrClosed
}
