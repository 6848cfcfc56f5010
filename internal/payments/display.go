package payments

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var displayPrinter = message.NewPrinter(language.English)

// ValidCurrency reports whether code is a well-formed ISO 4217 currency.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// FormatAmount renders a minor-unit amount with its currency symbol, for
// example "$120.00". Unknown codes fall back to the raw code prefix.
func FormatAmount(amountCents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return displayPrinter.Sprintf("%s %.2f", code, float64(amountCents)/100)
	}
	return displayPrinter.Sprintf("%v", currency.Symbol(unit.Amount(float64(amountCents)/100)))
}
