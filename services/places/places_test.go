package places

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	q, err := Query{Lat: 12.97, Lng: 77.59}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if q.Amenity != DefaultAmenity || q.Radius != DefaultRadius || q.Limit != DefaultLimit {
		t.Fatalf("defaults = %+v", q)
	}

	bad := []Query{
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
		{Lat: 0, Lng: 0, Radius: MaxRadius + 1},
		{Lat: 0, Lng: 0, Radius: -5},
		{Lat: 0, Lng: 0, Amenity: `hospital"];out;`},
		{Lat: math.NaN(), Lng: math.NaN()},
		{Lat: 0, Lng: math.Inf(1)},
	}
	for _, b := range bad {
		if _, err := b.Normalize(); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("Normalize(%+v) err = %v", b, err)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	got := BuildQuery(Query{Lat: 12.5, Lng: -0.25, Amenity: "pharmacy", Radius: 500, Limit: 5})
	want := `[out:json][timeout:25];node(around:500,12.5,-0.25)["amenity"="pharmacy"];out body 5;`
	if got != want {
		t.Fatalf("BuildQuery = %q", got)
	}
}

func TestOverpassNearby(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if !strings.Contains(r.PostForm.Get("data"), `"amenity"="hospital"`) {
			t.Errorf("data = %q", r.PostForm.Get("data"))
		}
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":12.9,"lon":77.6,"tags":{"name":"City Hospital","amenity":"hospital","addr:street":"MG Road","addr:city":"Bengaluru"}},
			{"type":"way","id":2},
			{"type":"node","id":3,"lat":12.8,"lon":77.5,"tags":{"name:en":"Clinic","amenity":"hospital"}}
		]}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, srv.Client()).Nearby(context.Background(), Query{Lat: 12.9, Lng: 77.6})
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d places, want 2", len(got))
	}
	if got[0].Name != "City Hospital" || got[0].Address != "MG Road, Bengaluru" || got[0].Lng != 77.6 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Name != "Clinic" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	got, err := New("", nil).Nearby(context.Background(), Query{Lat: 1, Lng: 1})
	if err != nil || len(got) != 0 {
		t.Fatalf("Nearby = %v, %v", got, err)
	}
}
