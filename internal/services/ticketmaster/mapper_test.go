package ticketmaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citypulse/server/internal/models"
)

var fixedToday = time.Date(2024, time.March, 9, 15, 4, 5, 0, time.UTC)

func TestMapEvent_Defaults(t *testing.T) {
	ev := MapEvent(RawEvent{ID: "evt1"}, fixedToday)

	assert.Equal(t, "evt1", ev.ID)
	assert.Equal(t, PlaceholderName, ev.Name)
	assert.Equal(t, "2024-03-09", ev.Date)
	assert.Equal(t, "TBA", ev.Venue)
	assert.Equal(t, "TBA", ev.City)
	assert.Equal(t, "", ev.Image)
	assert.Nil(t, ev.PriceRange)
	assert.Nil(t, ev.Location)
	assert.Nil(t, ev.Address)
	assert.Empty(t, ev.Genre)
}

func TestMapEvent_ImageSelection(t *testing.T) {
	testCases := []struct {
		name   string
		images []Image
		want   string
	}{
		{
			name: "first wider than threshold",
			images: []Image{
				{URL: "small", Width: 100},
				{URL: "exact", Width: 300},
				{URL: "large", Width: 640},
				{URL: "larger", Width: 1024},
			},
			want: "large",
		},
		{
			name:   "falls back to first image",
			images: []Image{{URL: "a", Width: 100}, {URL: "b", Width: 200}},
			want:   "a",
		},
		{name: "no images", images: nil, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev := MapEvent(RawEvent{ID: "x", Images: tc.images}, fixedToday)
			assert.Equal(t, tc.want, ev.Image)
		})
	}
}

func TestMapEvent_PrimaryClassification(t *testing.T) {
	raw := RawEvent{
		ID: "x",
		Classifications: []Classification{
			{Primary: false, Genre: &NamedRef{Name: "Jazz"}},
			{
				Primary:  true,
				Genre:    &NamedRef{Name: "Rock"},
				Segment:  &NamedRef{Name: "Music"},
				SubGenre: &NamedRef{Name: "Pop"},
				Type:     &NamedRef{Name: "Concert"},
			},
		},
	}

	ev := MapEvent(raw, fixedToday)
	assert.Equal(t, "Rock", ev.Genre)
	assert.Equal(t, "Music", ev.Segment)
	assert.Equal(t, "Pop", ev.SubGenre)
	assert.Equal(t, "Concert", ev.EventType)

	raw.Classifications = raw.Classifications[:1]
	ev = MapEvent(raw, fixedToday)
	assert.Empty(t, ev.Genre)
}

func TestMapEvent_FullRecord(t *testing.T) {
	enforced := true
	raw := RawEvent{
		ID:          "evt1",
		Name:        "Rock Fest",
		URL:         "https://tickets/evt1",
		Description: "Loud",
		Info:        "Bring earplugs",
		PleaseNote:  "No refunds",
		Promoter:    &Promoter{Name: "Live Nation"},
		Dates: &Dates{
			Start:    &DatePoint{LocalDate: "2024-05-01", LocalTime: "19:30:00"},
			End:      &DatePoint{LocalDate: "2024-05-02", LocalTime: "01:00:00"},
			Status:   &DateStatus{Code: "onsale"},
			Timezone: "America/New_York",
		},
		Sales: &Sales{
			Public:   &PublicSale{StartDateTime: "2024-01-01T10:00:00Z", EndDateTime: "2024-05-01T18:00:00Z"},
			Presales: []Presale{{Name: "Fan Club", StartDateTime: "a", EndDateTime: "b"}},
		},
		AgeRestrictions: &AgeRestrictions{LegalAgeEnforced: &enforced},
		TicketLimit:     &TicketLimit{Info: "8 per order"},
		Accessibility:   &Accessibility{Info: "Wheelchair seating"},
		PriceRanges:     []PriceRange{{Min: 25, Max: 99.5}, {Min: 1, Max: 2}},
		Embedded: &EventEmbedded{
			Attractions: []Attraction{{Name: "Band A"}, {Name: "Band B"}},
			Venues: []Venue{
				{
					Name:          "Arena",
					City:          &NamedRef{Name: "New York"},
					State:         &Region{Name: "New York", StateCode: "NY"},
					Country:       &Country{Name: "United States Of America", CountryCode: "US"},
					PostalCode:    "10001",
					Address:       &VenueAddress{Line1: "1 Main St"},
					Location:      &GeoPoint{Latitude: "40.7505", Longitude: "-73.9934"},
					ParkingDetail: "Garage",
					BoxOfficeInfo: &BoxOfficeInfo{PhoneNumberDetail: "555", OpenHoursDetail: "9-5"},
					GeneralInfo:   &GeneralInfo{GeneralRule: "No bags", ChildRule: "Under 2 free"},
				},
				{Name: "Ignored"},
			},
		},
	}

	ev := MapEvent(raw, fixedToday)

	assert.Equal(t, "Rock Fest", ev.Name)
	assert.Equal(t, "2024-05-01", ev.Date)
	assert.Equal(t, "19:30:00", ev.Time)
	assert.Equal(t, "2024-05-02", ev.EndDate)
	assert.Equal(t, "01:00:00", ev.EndTime)
	assert.Equal(t, "onsale", ev.Status)
	assert.Equal(t, "America/New_York", ev.Timezone)
	assert.Equal(t, "Live Nation", ev.Promoter)
	assert.Equal(t, []string{"Band A", "Band B"}, ev.Attractions)
	assert.Equal(t, "2024-01-01T10:00:00Z", ev.SaleStartDate)
	assert.Equal(t, []models.Presale{{Name: "Fan Club", StartDate: "a", EndDate: "b"}}, ev.Presales)
	require.NotNil(t, ev.AgeRestriction)
	assert.True(t, *ev.AgeRestriction)
	assert.Equal(t, "8 per order", ev.TicketLimit)
	assert.Equal(t, "Wheelchair seating", ev.Accessibility)
	assert.Equal(t, &models.PriceRange{Min: 25, Max: 99.5}, ev.PriceRange)

	assert.Equal(t, "Arena", ev.Venue)
	assert.Equal(t, "New York", ev.City)
	assert.Equal(t, "Garage", ev.ParkingInfo)
	assert.Equal(t, &models.BoxOfficeInfo{Phone: "555", Hours: "9-5"}, ev.BoxOfficeInfo)
	assert.Equal(t, &models.VenueRules{General: "No bags", Children: "Under 2 free"}, ev.VenueRules)
	assert.Equal(t, &models.Address{
		Line1:      "1 Main St",
		City:       "New York",
		State:      "New York",
		PostalCode: "10001",
		Country:    "United States Of America",
	}, ev.Address)
	assert.Equal(t, &models.Location{Latitude: 40.7505, Longitude: -73.9934}, ev.Location)
}

func TestMapEvent_UnparsableLocationOmitted(t *testing.T) {
	raw := RawEvent{
		ID: "x",
		Embedded: &EventEmbedded{Venues: []Venue{
			{Name: "V", Location: &GeoPoint{Latitude: "north", Longitude: "-73.9"}},
		}},
	}

	ev := MapEvent(raw, fixedToday)
	assert.Nil(t, ev.Location)
	assert.Equal(t, "V", ev.Venue)
	assert.Equal(t, "TBA", ev.City)
}

func TestMapEvents_SkipsRecordsWithoutIDOrName(t *testing.T) {
	raws := []RawEvent{
		{ID: "a", Name: "A"},
		{ID: "", Name: "No id"},
		{ID: "b", Name: ""},
		{ID: "c", Name: "C"},
	}

	events := MapEvents(raws, fixedToday)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "c", events[1].ID)
}
