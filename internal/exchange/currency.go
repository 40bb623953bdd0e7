// Package exchange answers exchange rate questions with a Gemini agent that
// calls the Frankfurter API as a tool.
package exchange

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rotisserie/eris"
)

// Currency is one supported currency.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Label renders the currency for pickers, e.g. "USD (US Dollar)".
func (c Currency) Label() string {
	return c.Code + " (" + c.Name + ")"
}

var currencies = []Currency{
	{"USD", "US Dollar"},
	{"EUR", "Euro"},
	{"JPY", "Yen"},
	{"BGN", "Bulgarian Lev"},
	{"CZK", "Czech Koruna"},
	{"DKK", "Danish Krone"},
	{"GBP", "Pound Sterling"},
	{"HUF", "Forint"},
	{"PLN", "Zloty"},
	{"RON", "Romanian Leu"},
	{"SEK", "Swedish Krona"},
	{"CHF", "Swiss Franc"},
	{"ISK", "Iceland Krona"},
	{"NOK", "Norwegian Krone"},
	{"TRY", "Turkish Lira"},
	{"AUD", "Australian Dollar"},
	{"BRL", "Brazilian Real"},
	{"CAD", "Canadian Dollar"},
	{"CNY", "Yuan Renminbi"},
	{"HKD", "Hong Kong Dollar"},
	{"IDR", "Rupiah"},
	{"ILS", "New Israeli Sheqel"},
	{"INR", "Indian Rupee"},
	{"KRW", "Won"},
	{"MXN", "Mexican Peso"},
	{"MYR", "Malaysian Ringgit"},
	{"NZD", "New Zealand Dollar"},
	{"PHP", "Philippine Peso"},
	{"SGD", "Singapore Dollar"},
	{"THB", "Baht"},
	{"ZAR", "Rand"},
}

// FirstRateDate is the earliest date Frankfurter has rates for.
var FirstRateDate = civil.Date{Year: 1999, Month: time.January, Day: 4}

var (
	// ErrUnsupportedCurrency is returned for a code outside Currencies.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrSameCurrency is returned when both sides of a conversion are the same.
	ErrSameCurrency = errors.New("currencies must differ")
	// ErrDateOutOfRange is returned for dates before FirstRateDate or after today.
	ErrDateOutOfRange = errors.New("date out of range")
)

// Currencies lists the supported currencies in picker order.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// LookupCurrency finds a currency by code, ignoring case.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// Query is one conversion question.
type Query struct {
	From string
	To   string
	Date civil.Date
}

// Validate checks both codes are supported and distinct, and that the date lies
// between FirstRateDate and today.
func (q Query) Validate(today civil.Date) error {
	from, ok := LookupCurrency(q.From)
	if !ok {
		return eris.Wrapf(ErrUnsupportedCurrency, "%q", q.From)
	}
	to, ok := LookupCurrency(q.To)
	if !ok {
		return eris.Wrapf(ErrUnsupportedCurrency, "%q", q.To)
	}
	if from.Code == to.Code {
		return eris.Wrapf(ErrSameCurrency, "%s", from.Code)
	}
	if !q.Date.IsValid() || q.Date.Before(FirstRateDate) || q.Date.After(today) {
		return eris.Wrapf(ErrDateOutOfRange, "%s (allowed %s to %s)", q.Date, FirstRateDate, today)
	}
	return nil
}

// Question is the natural-language prompt sent to the agent.
func (q Query) Question() string {
	return "What is the exchange rate from " + strings.ToUpper(q.From) + " to " + strings.ToUpper(q.To) +
		" currency as of " + q.Date.String() + "?"
}
