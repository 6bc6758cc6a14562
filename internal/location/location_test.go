package location

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"scanmap.klederson.com/internal/fetch"
	"scanmap.klederson.com/internal/geo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeClock returns a clock advancing one second per call.
func fakeClock() func() time.Time {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func testStore(points ...geo.Point) *Store {
	s := NewStore()
	s.now = fakeClock()
	for _, p := range points {
		s.Add(p)
	}
	return s
}

var londonTrack = []geo.Point{
	{Lat: 51.5, Lon: -0.1},
	{Lat: 51.6, Lon: -0.2},
	{Lat: 51.55, Lon: -0.15},
}

func TestStoreOrdering(t *testing.T) {
	s := testStore(londonTrack...)

	fixes, current := s.Snapshot()
	if len(fixes) != 3 || s.Count() != 3 {
		t.Fatalf("expected 3 fixes, got %d", len(fixes))
	}
	for i, f := range fixes {
		if f.Point != londonTrack[i] {
			t.Fatalf("fix %d: got %v, want %v", i, f.Point, londonTrack[i])
		}
		if i > 0 && !f.Time.After(fixes[i-1].Time) {
			t.Fatal("fixes must be in time order")
		}
	}
	if current == nil || current.Point != londonTrack[2] {
		t.Fatalf("unexpected current fix %v", current)
	}
	if !s.LastSeen().Equal(current.Time) {
		t.Fatal("LastSeen must match the current fix")
	}

	fixes[0].Point = geo.Point{}
	if again, _ := s.Snapshot(); again[0].Point != londonTrack[0] {
		t.Fatal("snapshot must be a copy")
	}
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	fixes, current := s.Snapshot()
	if len(fixes) != 0 || current != nil || !s.LastSeen().IsZero() {
		t.Fatal("new store must be empty")
	}
}

func TestParseNMEA(t *testing.T) {
	tests := []struct {
		name string
		line string
		want geo.Point
		ok   bool
	}{
		{
			name: "gga gps fix",
			line: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
			want: geo.Point{Lat: 48.1173, Lon: 11.516666666666667},
			ok:   true,
		},
		{
			name: "gga with leading noise",
			line: "xx$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r",
			want: geo.Point{Lat: 48.1173, Lon: 11.516666666666667},
			ok:   true,
		},
		{
			name: "gga without fix",
			line: "$GPGGA,123519,4807.038,N,01131.000,E,0,08,0.9,545.4,M,46.9,M,,*46",
		},
		{
			name: "rmc valid",
			line: "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
			want: geo.Point{Lat: 48.1173, Lon: 11.516666666666667},
			ok:   true,
		},
		{
			name: "bad checksum",
			line: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00",
		},
		{
			name: "other sentence",
			line: "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39",
		},
		{name: "garbage", line: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNMEA(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if math.Abs(got.Lat-tt.want.Lat) > 1e-6 || math.Abs(got.Lon-tt.want.Lon) > 1e-6 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadNMEA(t *testing.T) {
	stream := strings.Join([]string{
		"$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
	}, "\r\n")

	var got []geo.Point
	err := ReadNMEA(context.Background(), strings.NewReader(stream), func(p geo.Point) {
		got = append(got, p)
	})
	if err != ErrClosed {
		t.Fatalf("expected ErrClosed at end of stream, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(got))
	}
}

func TestDecodeMQTTFix(t *testing.T) {
	p, err := decodeMQTTFix([]byte(`{"time":"12:34:56","lat":51.5,"lon":-0.1,"validity":"A"}`))
	if err != nil || p != (geo.Point{Lat: 51.5, Lon: -0.1}) {
		t.Fatalf("unexpected %v, %v", p, err)
	}
	for _, payload := range []string{`{"lat":1,"lon":2,"validity":"V"}`, `{"lat":1}`, `nope`} {
		if _, err := decodeMQTTFix([]byte(payload)); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
}

func TestTCPSourceAddress(t *testing.T) {
	tests := map[string]string{
		"":               "localhost:10110",
		"192.168.1.5":    "192.168.1.5:10110",
		"gps.local:4000": "gps.local:4000",
		":5000":          "localhost:5000",
	}
	for in, want := range tests {
		if got := (&TCPSource{Addr: in}).address(); got != want {
			t.Errorf("address(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGJSONRoundTrip(t *testing.T) {
	router := NewRouter(testStore(londonTrack...), "test", quietLogger())
	srv := httptest.NewServer(router)
	defer srv.Close()

	snap, err := fetch.New(srv.URL+"/gjson", time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(snap.Points))
	}
	for i, p := range snap.Points {
		if p != londonTrack[i] {
			t.Fatalf("point %d: got %v, want %v", i, p, londonTrack[i])
		}
	}
	if !snap.HasLast() || *snap.Last != londonTrack[2] {
		t.Fatalf("unexpected last %v", snap.Last)
	}
}

func TestGJSONHeaders(t *testing.T) {
	router := NewRouter(NewStore(), "test", quietLogger())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gjson", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("CORS header %q", got)
	}
	snap, err := fetch.Decode(w.Body.Bytes())
	if err != nil || len(snap.Points) != 0 || snap.HasLast() {
		t.Fatalf("empty store must give an empty collection: %v %v", snap, err)
	}
}

func TestLookAtRange(t *testing.T) {
	tiny := orb.Bound{Min: orb.Point{-0.1, 51.5}, Max: orb.Point{-0.1, 51.5}}
	if got := LookAtRange(tiny); got != 200 {
		t.Fatalf("single point range = %v, want 200", got)
	}

	huge := orb.Bound{Min: orb.Point{-74, 40.7}, Max: orb.Point{-0.1, 51.5}}
	if got := LookAtRange(huge); got != 100000 {
		t.Fatalf("transatlantic range = %v, want 100000", got)
	}

	// About 11.1 km per 0.1 degree of latitude.
	mid := orb.Bound{Min: orb.Point{0, 51.5}, Max: orb.Point{0, 51.6}}
	if got := LookAtRange(mid); math.Abs(got-2*11119.5) > 10 {
		t.Fatalf("range = %v, want about 22239", got)
	}
}

func TestKML(t *testing.T) {
	router := NewRouter(testStore(londonTrack...), "test", quietLogger())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kml", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.google-earth.kml+xml" {
		t.Fatalf("content type %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		`xmlns="http://www.opengis.net/kml/2.2"`,
		`xmlns:gx="http://www.google.com/kml/ext/2.2"`,
		"<name>Last Location</name>",
		"<coordinates>-0.15,51.55</coordinates>",
		"<gx:coord>-0.2 51.6</gx:coord>",
		"<description>3 locations</description>",
		"<range>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("kml missing %q", want)
		}
	}

	var doc struct {
		XMLName xml.Name `xml:"kml"`
	}
	if err := xml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("kml is not well-formed: %v", err)
	}
}

func TestKMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKML(&buf, nil, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "LookAt") || strings.Contains(buf.String(), "Placemark") {
		t.Fatal("empty store must not produce a LookAt or placemarks")
	}
}

func TestHealth(t *testing.T) {
	router := NewRouter(testStore(londonTrack[0]), "demo", quietLogger())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"locations":1`) {
		t.Fatalf("unexpected health %d %s", w.Code, w.Body.String())
	}
}

// scriptedSource emits a fixed list of points then fails.
type scriptedSource struct {
	points []geo.Point
	runs   int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Run(ctx context.Context, emit func(geo.Point)) error {
	s.runs++
	for _, p := range s.points {
		emit(p)
	}
	return ErrClosed
}

func TestCollectorRetries(t *testing.T) {
	src := &scriptedSource{points: londonTrack[:1]}
	store := NewStore()
	c := NewCollector(src, store, time.Millisecond, 0, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Count() < 3 {
		select {
		case <-deadline:
			t.Fatal("collector did not retry the source")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestDemoSourceWalks(t *testing.T) {
	src := NewDemoSource(time.Millisecond)
	start := src.pos

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var got []geo.Point
	err := src.Run(ctx, func(p geo.Point) { got = append(got, p) })
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(got) < 2 || got[0] != start {
		t.Fatalf("expected a walk from the start point, got %d fixes", len(got))
	}
	for _, p := range got {
		if HaversineDistance(start.Lat, start.Lon, p.Lat, p.Lon) > 5000 {
			t.Fatalf("walker strayed too far: %v", p)
		}
	}
}
