package plans

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of the plan catalog. Prices are decimal
// strings in major units ("9.99").
type catalogFile struct {
	Currency string `yaml:"currency"`
	Plans    []struct {
		Slug         string `yaml:"slug"`
		Name         string `yaml:"name"`
		Tier         int    `yaml:"tier"`
		MonthlyPrice string `yaml:"monthly_price"`
		YearlyPrice  string `yaml:"yearly_price"`
		Currency     string `yaml:"currency"`
		Active       *bool  `yaml:"active"`
	} `yaml:"plans"`
}

// LoadCatalog reads a YAML plan catalog from path.
func LoadCatalog(path, defaultCurrency string) ([]Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	return ParseCatalog(raw, defaultCurrency)
}

func ParseCatalog(raw []byte, defaultCurrency string) ([]Plan, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}
	if file.Currency != "" {
		defaultCurrency = file.Currency
	}

	seen := map[string]bool{}
	out := make([]Plan, 0, len(file.Plans))
	for _, fp := range file.Plans {
		slug := strings.TrimSpace(fp.Slug)
		if slug == "" {
			return nil, errors.New("plan catalog: slug is required")
		}
		if seen[slug] {
			return nil, fmt.Errorf("plan catalog: duplicate slug %q", slug)
		}
		seen[slug] = true
		if fp.Tier < TierFree {
			return nil, fmt.Errorf("plan catalog: %s: tier must be >= %d", slug, TierFree)
		}

		currency := strings.ToUpper(firstNonEmpty(fp.Currency, defaultCurrency))
		monthly, err := ToMinor(fp.MonthlyPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("plan catalog: %s monthly_price: %w", slug, err)
		}
		yearly, err := ToMinor(fp.YearlyPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("plan catalog: %s yearly_price: %w", slug, err)
		}

		active := true
		if fp.Active != nil {
			active = *fp.Active
		}
		out = append(out, Plan{
			Slug:         slug,
			Name:         firstNonEmpty(fp.Name, slug),
			Tier:         fp.Tier,
			MonthlyPrice: monthly,
			YearlyPrice:  yearly,
			Currency:     currency,
			Active:       active,
		})
	}
	SortByTier(out)
	return out, nil
}

// minorExponent lists ISO 4217 currencies whose minor unit is not 2 digits.
var minorExponent = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

func MinorExponent(currency string) int32 {
	if exp, ok := minorExponent[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// ToMinor converts a major-unit decimal string into integral minor units.
// An empty string means zero.
func ToMinor(major, currency string) (int64, error) {
	major = strings.TrimSpace(major)
	if major == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(major)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", major, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", major)
	}
	minor := d.Shift(MinorExponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more precision than %s allows", major, currency)
	}
	return minor.IntPart(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
