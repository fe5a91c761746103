package utils

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders amount with the currency's symbol, e.g. "$ 1,250.00".
// Unknown codes fall back to the code itself.
func FormatAmount(code string, amount float64) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	number := printer.Sprintf("%.2f", amount)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + number
	}
	return printer.Sprint(currency.Symbol(unit)) + " " + number
}
