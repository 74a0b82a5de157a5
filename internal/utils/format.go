package utils

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "2006-01-02"

var (
	arabicMonths = [...]string{
		"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
		"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
	}
	arabicWeekdays = [...]string{
		"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
	}

	usdPrinter = message.NewPrinter(language.AmericanEnglish)
)

// LocaleFromLanguage maps the two supported UI languages to a locale tag.
func LocaleFromLanguage(lang string) string {
	if lang == "ar" {
		return language.MustParse("ar-SA").String()
	}
	return language.AmericanEnglish.String()
}

// FormatDate renders a YYYY-MM-DD date as "January 15, 2024". Unparsable
// input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// FormatDateWithLocale renders the long weekday form of date for lang and
// appends timeOfDay with a localized connector when it is non-empty.
func FormatDateWithLocale(date, timeOfDay, lang string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}

	var formatted, connector string
	if lang == "ar" {
		formatted = fmt.Sprintf("%s، %d %s %d",
			arabicWeekdays[t.Weekday()], t.Day(), arabicMonths[t.Month()-1], t.Year())
		connector = "في"
	} else {
		formatted = t.Format("Monday, January 2, 2006")
		connector = "at"
	}

	if timeOfDay != "" {
		return fmt.Sprintf("%s %s %s", formatted, connector, timeOfDay)
	}
	return formatted
}

// FormatCurrency renders amount as US dollars, e.g. "$1,234.50".
func FormatCurrency(amount float64) string {
	if amount < 0 {
		return "-$" + usdPrinter.Sprintf("%.2f", -amount)
	}
	return "$" + usdPrinter.Sprintf("%.2f", amount)
}
