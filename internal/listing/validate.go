package listing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Prices are DECIMAL(10,2): up to eight integer digits and two fraction digits.
var pricePattern = regexp.MustCompile(`^(\d{1,8})(?:\.(\d{1,2}))?$`)

// Validate checks in and returns it with trimmed text and a canonical price.
func (in Input) Validate() (Input, error) {
	fields := make(map[string]string)

	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)

	checkText(fields, "title", in.Title)
	checkText(fields, "location", in.Location)

	price, err := NormalizePrice(in.PricePerNight)
	if err != nil {
		fields["price_per_night"] = err.Error()
	}
	in.PricePerNight = price

	if len(fields) > 0 {
		return Input{}, &ValidationError{Fields: fields}
	}
	return in, nil
}

func checkText(fields map[string]string, name, value string) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		fields[name] = "this field may not be blank"
	case n > MaxTextLength:
		fields[name] = fmt.Sprintf("ensure this field has no more than %d characters", MaxTextLength)
	}
}

// NormalizePrice parses a positive decimal amount and renders it with two fraction digits.
func NormalizePrice(raw string) (string, error) {
	m := pricePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("a positive decimal with at most 8 digits before and 2 after the point is required")
	}

	whole := strings.TrimLeft(m[1], "0")
	if whole == "" {
		whole = "0"
	}
	frac := m[2]
	for len(frac) < 2 {
		frac += "0"
	}

	if whole == "0" && frac == "00" {
		return "", fmt.Errorf("ensure this value is greater than 0")
	}
	return whole + "." + frac, nil
}
