package ticketmaster

// RawEvent is the Discovery API v2 event resource. Every nested object is
// optional in practice, so nested structs are pointers and slices.
type RawEvent struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	Description     string           `json:"description,omitempty"`
	Info            string           `json:"info,omitempty"`
	PleaseNote      string           `json:"pleaseNote,omitempty"`
	Promoter        *Promoter        `json:"promoter,omitempty"`
	Dates           *Dates           `json:"dates,omitempty"`
	Sales           *Sales           `json:"sales,omitempty"`
	Classifications []Classification `json:"classifications,omitempty"`
	Accessibility   *Accessibility   `json:"accessibility,omitempty"`
	TicketLimit     *TicketLimit     `json:"ticketLimit,omitempty"`
	AgeRestrictions *AgeRestrictions `json:"ageRestrictions,omitempty"`
	Embedded        *EventEmbedded   `json:"_embedded,omitempty"`
	Images          []Image          `json:"images,omitempty"`
	PriceRanges     []PriceRange     `json:"priceRanges,omitempty"`
	Outlets         []Outlet         `json:"outlets,omitempty"`
	Seatmap         *Seatmap         `json:"seatmap,omitempty"`
}

type Promoter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Dates struct {
	Start            *DatePoint  `json:"start,omitempty"`
	End              *DatePoint  `json:"end,omitempty"`
	Status           *DateStatus `json:"status,omitempty"`
	Timezone         string      `json:"timezone,omitempty"`
	SpanMultipleDays bool        `json:"spanMultipleDays,omitempty"`
}

type DatePoint struct {
	LocalDate string `json:"localDate,omitempty"`
	LocalTime string `json:"localTime,omitempty"`
	DateTime  string `json:"dateTime,omitempty"`
}

type DateStatus struct {
	Code string `json:"code"`
}

type Sales struct {
	Public   *PublicSale `json:"public,omitempty"`
	Presales []Presale   `json:"presales,omitempty"`
}

type PublicSale struct {
	StartDateTime string `json:"startDateTime,omitempty"`
	EndDateTime   string `json:"endDateTime,omitempty"`
}

type Presale struct {
	Name          string `json:"name"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
}

type NamedRef struct {
	Name string `json:"name"`
}

type Classification struct {
	Primary  bool      `json:"primary"`
	Segment  *NamedRef `json:"segment,omitempty"`
	Genre    *NamedRef `json:"genre,omitempty"`
	SubGenre *NamedRef `json:"subGenre,omitempty"`
	Type     *NamedRef `json:"type,omitempty"`
	SubType  *NamedRef `json:"subType,omitempty"`
	Family   bool      `json:"family,omitempty"`
}

type Accessibility struct {
	TicketLimit int    `json:"ticketLimit,omitempty"`
	Info        string `json:"info,omitempty"`
}

type TicketLimit struct {
	Info string `json:"info,omitempty"`
}

type AgeRestrictions struct {
	LegalAgeEnforced *bool `json:"legalAgeEnforced,omitempty"`
}

type EventEmbedded struct {
	Venues      []Venue      `json:"venues,omitempty"`
	Attractions []Attraction `json:"attractions,omitempty"`
}

type Venue struct {
	ID                      string         `json:"id"`
	Name                    string         `json:"name"`
	Type                    string         `json:"type,omitempty"`
	Address                 *VenueAddress  `json:"address,omitempty"`
	City                    *NamedRef      `json:"city,omitempty"`
	State                   *Region        `json:"state,omitempty"`
	Country                 *Country       `json:"country,omitempty"`
	PostalCode              string         `json:"postalCode,omitempty"`
	Location                *GeoPoint      `json:"location,omitempty"`
	Timezone                string         `json:"timezone,omitempty"`
	BoxOfficeInfo           *BoxOfficeInfo `json:"boxOfficeInfo,omitempty"`
	ParkingDetail           string         `json:"parkingDetail,omitempty"`
	AccessibleSeatingDetail string         `json:"accessibleSeatingDetail,omitempty"`
	GeneralInfo             *GeneralInfo   `json:"generalInfo,omitempty"`
}

type VenueAddress struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
}

type Region struct {
	Name      string `json:"name"`
	StateCode string `json:"stateCode,omitempty"`
}

type Country struct {
	Name        string `json:"name"`
	CountryCode string `json:"countryCode,omitempty"`
}

// GeoPoint carries coordinates as decimal strings, as the API sends them.
type GeoPoint struct {
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

type BoxOfficeInfo struct {
	PhoneNumberDetail     string `json:"phoneNumberDetail,omitempty"`
	OpenHoursDetail       string `json:"openHoursDetail,omitempty"`
	AcceptedPaymentDetail string `json:"acceptedPaymentDetail,omitempty"`
	WillCallDetail        string `json:"willCallDetail,omitempty"`
}

type GeneralInfo struct {
	GeneralRule string `json:"generalRule,omitempty"`
	ChildRule   string `json:"childRule,omitempty"`
}

type Attraction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type Image struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Fallback bool   `json:"fallback,omitempty"`
}

type PriceRange struct {
	Type     string  `json:"type"`
	Currency string  `json:"currency"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

type Outlet struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type Seatmap struct {
	StaticURL string `json:"staticUrl"`
}

// searchResponse is the envelope of GET /events.json.
type searchResponse struct {
	Embedded *struct {
		Events []RawEvent `json:"events"`
	} `json:"_embedded,omitempty"`
	Page *pageInfo `json:"page,omitempty"`
}

type pageInfo struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}
