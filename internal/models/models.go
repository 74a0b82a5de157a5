package models

// Event is the catalog record the app renders. ID is the only identity key;
// overlapping lists are de-duplicated on it.
type Event struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
	City  string `json:"city"`
	Image string `json:"image"`
	URL   string `json:"url"`

	PriceRange *PriceRange `json:"priceRange,omitempty"`

	Time    string `json:"time,omitempty"`
	EndDate string `json:"endDate,omitempty"`
	EndTime string `json:"endTime,omitempty"`

	Description string `json:"description,omitempty"`
	Info        string `json:"info,omitempty"`
	PleaseNote  string `json:"pleaseNote,omitempty"`

	Genre     string `json:"genre,omitempty"`
	Segment   string `json:"segment,omitempty"`
	SubGenre  string `json:"subGenre,omitempty"`
	EventType string `json:"eventType,omitempty"`

	Timezone      string    `json:"timezone,omitempty"`
	Status        string    `json:"status,omitempty"`
	Promoter      string    `json:"promoter,omitempty"`
	Attractions   []string  `json:"attractions,omitempty"`
	SaleStartDate string    `json:"saleStartDate,omitempty"`
	SaleEndDate   string    `json:"saleEndDate,omitempty"`
	Presales      []Presale `json:"presales,omitempty"`

	AgeRestriction *bool  `json:"ageRestriction,omitempty"`
	TicketLimit    string `json:"ticketLimit,omitempty"`
	Accessibility  string `json:"accessibility,omitempty"`
	ParkingInfo    string `json:"parkingInfo,omitempty"`

	BoxOfficeInfo *BoxOfficeInfo `json:"boxOfficeInfo,omitempty"`
	VenueRules    *VenueRules    `json:"venueRules,omitempty"`
	Address       *Address       `json:"address,omitempty"`
	Location      *Location      `json:"location,omitempty"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Presale struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type BoxOfficeInfo struct {
	Phone    string `json:"phone,omitempty"`
	Hours    string `json:"hours,omitempty"`
	Payment  string `json:"payment,omitempty"`
	WillCall string `json:"willCall,omitempty"`
}

type VenueRules struct {
	General  string `json:"general,omitempty"`
	Children string `json:"children,omitempty"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EventPage is one page returned by the catalog.
type EventPage struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// AppPreferences is the persisted app slice.
type AppPreferences struct {
	Language         Language `json:"language"`
	IsRTL            bool     `json:"isRTL"`
	Theme            Theme    `json:"theme"`
	HasSeenSplash    bool     `json:"hasSeenSplash"`
	BiometricEnabled bool     `json:"biometricEnabled"`
}

func DefaultAppPreferences() AppPreferences {
	return AppPreferences{
		Language: LanguageEnglish,
		Theme:    ThemeLight,
	}
}
