package location

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"

	"scanmap.klederson.com/internal/config"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

const (
	kmlNS   = "http://www.opengis.net/kml/2.2"
	kmlGxNS = "http://www.google.com/kml/ext/2.2"

	lastIcon = "http://maps.google.com/mapfiles/kml/shapes/target.png"
)

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	NS       string      `xml:"xmlns,attr"`
	GxNS     string      `xml:"xmlns:gx,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	LookAt     *kmlLookAt     `xml:"LookAt,omitempty"`
	Styles     []kmlStyle     `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlLookAt struct {
	Latitude     float64     `xml:"latitude"`
	Longitude    float64     `xml:"longitude"`
	AltitudeMode string      `xml:"altitudeMode"`
	Range        float64     `xml:"range"`
	TimeSpan     kmlTimeSpan `xml:"gx:TimeSpan"`
}

type kmlTimeSpan struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

type kmlStyle struct {
	ID         string         `xml:"id,attr"`
	IconStyle  *kmlIconStyle  `xml:"IconStyle,omitempty"`
	LineStyle  *kmlLineStyle  `xml:"LineStyle,omitempty"`
	LabelStyle *kmlLabelStyle `xml:"LabelStyle,omitempty"`
}

type kmlIconStyle struct {
	Icon  *kmlIcon `xml:"Icon,omitempty"`
	Scale float64  `xml:"scale"`
}

type kmlIcon struct {
	Href string `xml:"href"`
}

type kmlLineStyle struct {
	Color string `xml:"color"`
	Width int    `xml:"width"`
}

type kmlLabelStyle struct {
	Scale float64 `xml:"scale"`
}

type kmlPlacemark struct {
	Name         string    `xml:"name"`
	Description  string    `xml:"description"`
	StyleURL     string    `xml:"styleUrl"`
	AltitudeMode string    `xml:"altitudeMode,omitempty"`
	Point        *kmlPoint `xml:"Point,omitempty"`
	Track        *kmlTrack `xml:"gx:Track,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlTrack struct {
	AltitudeMode string   `xml:"altitudeMode"`
	When         []string `xml:"when"`
	Coords       []string `xml:"gx:coord"`
}

// HaversineDistance returns the great-circle distance between two points in
// meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// LookAtRange is the camera range for a track extent: twice the diagonal,
// with the diagonal limited to [LookAtMinRange, LookAtMaxRange].
func LookAtRange(b orb.Bound) float64 {
	dist := HaversineDistance(b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	if dist < config.LookAtMinRange {
		dist = config.LookAtMinRange
	}
	if dist > config.LookAtMaxRange {
		dist = config.LookAtMaxRange
	}
	return dist * 2
}

// WriteKML writes the track and current fix as a KML document.
func WriteKML(w io.Writer, fixes []Fix, current *Fix) error {
	doc := kmlDocument{
		Name: config.AppName,
		Styles: []kmlStyle{
			{
				ID:        "last",
				IconStyle: &kmlIconStyle{Icon: &kmlIcon{Href: lastIcon}, Scale: 2},
			},
			{
				ID:         "track",
				LineStyle:  &kmlLineStyle{Color: "7f0000ff", Width: 4},
				IconStyle:  &kmlIconStyle{Scale: 0},
				LabelStyle: &kmlLabelStyle{Scale: 0},
			},
		},
	}

	if len(fixes) > 0 {
		b := fixes[0].Point.Orb().Bound()
		for _, f := range fixes[1:] {
			b = b.Extend(f.Point.Orb())
		}
		center := b.Center()
		doc.LookAt = &kmlLookAt{
			Latitude:     center.Lat(),
			Longitude:    center.Lon(),
			AltitudeMode: "clampToGround",
			Range:        LookAtRange(b),
			TimeSpan: kmlTimeSpan{
				Begin: fixes[0].Time.UTC().Format(time.RFC3339),
				End:   fixes[len(fixes)-1].Time.UTC().Format(time.RFC3339),
			},
		}
	}

	if current != nil {
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:         "Last Location",
			Description:  current.Time.Format("2006-01-02 15:04:05"),
			StyleURL:     "#last",
			AltitudeMode: "clampToGround",
			Point:        &kmlPoint{Coordinates: kmlCoord(current.Point.Lon, current.Point.Lat, ",")},
		})
	}

	if len(fixes) > 0 {
		track := &kmlTrack{AltitudeMode: "clampToGround"}
		for _, f := range fixes {
			track.When = append(track.When, f.Time.UTC().Format(time.RFC3339))
			track.Coords = append(track.Coords, kmlCoord(f.Point.Lon, f.Point.Lat, " "))
		}
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        "Track",
			Description: fmt.Sprintf("%d locations", len(fixes)),
			StyleURL:    "#track",
			Track:       track,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(kmlRoot{NS: kmlNS, GxNS: kmlGxNS, Document: doc}); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	return enc.Flush()
}

func kmlCoord(lon, lat float64, sep string) string {
	return fmt.Sprintf("%g%s%g", lon, sep, lat)
}
