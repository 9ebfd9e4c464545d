package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	marketDomain "github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
)

// MaxItemsPerRequest caps a manual item list.
const MaxItemsPerRequest = 50

// ScanMode selects where the item list comes from.
type ScanMode string

const (
	// ScanManual scans the items supplied with the query.
	ScanManual ScanMode = "manual"
	// ScanAuto ignores supplied items and scans the curated universe.
	ScanAuto ScanMode = "auto"
)

// ParseScanMode maps a user string onto a ScanMode, defaulting to manual.
func ParseScanMode(s string) ScanMode {
	if ScanMode(strings.ToLower(strings.TrimSpace(s))) == ScanAuto {
		return ScanAuto
	}
	return ScanManual
}

// Query is one scan request.
type Query struct {
	Items             []string          `validate:"max=50,dive,itemid"`
	Locations         []string          `validate:"dive,location"`
	Quality           int               `validate:"min=1,max=5"`
	Mode              domain.Mode       `validate:"-"`
	MinProfitPercent  float64           `validate:"gte=0,lte=1000"`
	MaxDataAgeMinutes int               `validate:"min=1,max=1440"`
	ScanMode          ScanMode          `validate:"-"`
	Fees              *domain.FeeConfig `validate:"-"`
	BatchSize         int               `validate:"gte=0,lte=50"`
	BatchBudget       time.Duration     `validate:"gte=0"`
}

var itemIDPattern = regexp.MustCompile(`^[A-Z0-9_*.@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("itemid", func(fl validator.FieldLevel) bool {
		return itemIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		_, ok := marketDomain.ParseLocation(fl.Field().String())
		return ok
	})
	return v
}

// Normalize returns a copy with item ids trimmed, upper-cased and
// de-duplicated in first-seen order, locations de-duplicated (all supported
// cities when none are given), and mode strings resolved.
func (q Query) Normalize() Query {
	items := make([]string, 0, len(q.Items))
	seen := make(map[string]bool, len(q.Items))
	for _, id := range q.Items {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, id)
	}
	q.Items = items

	locs := make([]string, 0, len(q.Locations))
	seenLocs := make(map[string]bool, len(q.Locations))
	for _, l := range q.Locations {
		l = strings.TrimSpace(l)
		if l == "" || seenLocs[l] {
			continue
		}
		seenLocs[l] = true
		locs = append(locs, l)
	}
	if len(locs) == 0 {
		for _, l := range marketDomain.SupportedLocations() {
			locs = append(locs, string(l))
		}
	}
	q.Locations = locs

	q.Mode = domain.ParseMode(string(q.Mode))
	q.ScanMode = ParseScanMode(string(q.ScanMode))
	return q
}

// Validate checks a normalized query. Failures are 400-class AppErrors.
func (q Query) Validate() error {
	if q.ScanMode != ScanAuto && len(q.Items) == 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "at least one item ID is required")
	}

	if f := q.Fees; f != nil {
		for _, rate := range []float64{f.BuyOrderFeeRate, f.SellOrderFeeRate, f.TaxRate} {
			if rate < 0 || rate >= 1 {
				return apperror.Validation(apperror.CodeInvalidQueryFilter, fmt.Sprintf("fee rate %v outside [0,1)", rate))
			}
		}
	}

	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}

	fe := fieldErrs[0]
	switch {
	case fe.Tag() == "itemid":
		return apperror.Validation(apperror.CodeInvalidItemID, fmt.Sprintf("invalid item ID: %v", fe.Value()))
	case fe.Tag() == "location":
		return apperror.Validation(apperror.CodeInvalidLocation, fmt.Sprintf("unsupported location: %v", fe.Value()))
	case fe.Field() == "Items" && fe.Tag() == "max":
		return apperror.Validation(apperror.CodeTooManyItems, fmt.Sprintf("maximum %d item IDs allowed", MaxItemsPerRequest))
	default:
		return apperror.Validation(apperror.CodeInvalidQueryFilter, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
}

// locations converts validated location names.
func (q Query) locations() []marketDomain.Location {
	locs := make([]marketDomain.Location, 0, len(q.Locations))
	for _, name := range q.Locations {
		if l, ok := marketDomain.ParseLocation(name); ok {
			locs = append(locs, l)
		}
	}
	return locs
}
