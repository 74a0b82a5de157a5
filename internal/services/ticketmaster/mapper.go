package ticketmaster

import (
	"strconv"
	"time"

	"github.com/citypulse/server/internal/models"
)

const (
	PlaceholderName  = "Event Name TBA"
	PlaceholderVenue = "TBA"

	// minDisplayImageWidth is the width an image must exceed to be preferred
	// as the cover image.
	minDisplayImageWidth = 300
)

// MapEvent converts one Discovery record into an Event. It never fails:
// every absent field gets a default, and today supplies the date when the
// record has none.
func MapEvent(raw RawEvent, today time.Time) models.Event {
	ev := models.Event{
		ID:          raw.ID,
		Name:        orDefault(raw.Name, PlaceholderName),
		Date:        today.UTC().Format("2006-01-02"),
		Venue:       PlaceholderVenue,
		City:        PlaceholderVenue,
		Image:       pickImage(raw.Images),
		URL:         raw.URL,
		Description: raw.Description,
		Info:        raw.Info,
		PleaseNote:  raw.PleaseNote,
	}

	if len(raw.PriceRanges) > 0 {
		ev.PriceRange = &models.PriceRange{Min: raw.PriceRanges[0].Min, Max: raw.PriceRanges[0].Max}
	}

	if d := raw.Dates; d != nil {
		if d.Start != nil {
			if d.Start.LocalDate != "" {
				ev.Date = d.Start.LocalDate
			}
			ev.Time = d.Start.LocalTime
		}
		if d.End != nil {
			ev.EndDate = d.End.LocalDate
			ev.EndTime = d.End.LocalTime
		}
		if d.Status != nil {
			ev.Status = d.Status.Code
		}
		ev.Timezone = d.Timezone
	}

	if c := primaryClassification(raw.Classifications); c != nil {
		ev.Genre = refName(c.Genre)
		ev.Segment = refName(c.Segment)
		ev.SubGenre = refName(c.SubGenre)
		ev.EventType = refName(c.Type)
	}

	if raw.Promoter != nil {
		ev.Promoter = raw.Promoter.Name
	}
	if s := raw.Sales; s != nil {
		if s.Public != nil {
			ev.SaleStartDate = s.Public.StartDateTime
			ev.SaleEndDate = s.Public.EndDateTime
		}
		for _, p := range s.Presales {
			ev.Presales = append(ev.Presales, models.Presale{
				Name:      p.Name,
				StartDate: p.StartDateTime,
				EndDate:   p.EndDateTime,
			})
		}
	}
	if raw.AgeRestrictions != nil && raw.AgeRestrictions.LegalAgeEnforced != nil {
		enforced := *raw.AgeRestrictions.LegalAgeEnforced
		ev.AgeRestriction = &enforced
	}
	if raw.TicketLimit != nil {
		ev.TicketLimit = raw.TicketLimit.Info
	}
	if raw.Accessibility != nil {
		ev.Accessibility = raw.Accessibility.Info
	}

	if emb := raw.Embedded; emb != nil {
		for _, a := range emb.Attractions {
			ev.Attractions = append(ev.Attractions, a.Name)
		}
		if len(emb.Venues) > 0 {
			applyVenue(&ev, emb.Venues[0])
		}
	}

	return ev
}

// MapEvents maps every usable record, skipping those without an id or a
// name.
func MapEvents(raws []RawEvent, today time.Time) []models.Event {
	events := make([]models.Event, 0, len(raws))
	for _, raw := range raws {
		if raw.ID == "" || raw.Name == "" {
			continue
		}
		events = append(events, MapEvent(raw, today))
	}
	return events
}

func applyVenue(ev *models.Event, v Venue) {
	ev.Venue = orDefault(v.Name, PlaceholderVenue)
	cityName := ""
	if v.City != nil {
		cityName = v.City.Name
	}
	ev.City = orDefault(cityName, PlaceholderVenue)
	ev.ParkingInfo = v.ParkingDetail

	if b := v.BoxOfficeInfo; b != nil {
		ev.BoxOfficeInfo = &models.BoxOfficeInfo{
			Phone:    b.PhoneNumberDetail,
			Hours:    b.OpenHoursDetail,
			Payment:  b.AcceptedPaymentDetail,
			WillCall: b.WillCallDetail,
		}
	}
	if g := v.GeneralInfo; g != nil {
		ev.VenueRules = &models.VenueRules{General: g.GeneralRule, Children: g.ChildRule}
	}
	if a := v.Address; a != nil {
		addr := &models.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       cityName,
			PostalCode: v.PostalCode,
		}
		if v.State != nil {
			addr.State = v.State.Name
		}
		if v.Country != nil {
			addr.Country = v.Country.Name
		}
		ev.Address = addr
	}
	if loc := v.Location; loc != nil {
		lat, latErr := strconv.ParseFloat(loc.Latitude, 64)
		lng, lngErr := strconv.ParseFloat(loc.Longitude, 64)
		if latErr == nil && lngErr == nil {
			ev.Location = &models.Location{Latitude: lat, Longitude: lng}
		}
	}
}

func pickImage(images []Image) string {
	for _, img := range images {
		if img.Width > minDisplayImageWidth {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}

func primaryClassification(cs []Classification) *Classification {
	for i := range cs {
		if cs[i].Primary {
			return &cs[i]
		}
	}
	return nil
}

func refName(r *NamedRef) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
