package app

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
)

func TestQuery_Normalize(t *testing.T) {
	q := Query{
		Items:     []string{" t4_bag", "T4_BAG", "", "t5_cape@1"},
		Locations: []string{"Martlock ", "Martlock", "Fort Sterling"},
		Mode:      "TOP3",
		ScanMode:  "bogus",
	}.Normalize()

	if want := []string{"T4_BAG", "T5_CAPE@1"}; !slices.Equal(q.Items, want) {
		t.Errorf("Items = %v, want %v", q.Items, want)
	}
	if want := []string{"Martlock", "Fort Sterling"}; !slices.Equal(q.Locations, want) {
		t.Errorf("Locations = %v, want %v", q.Locations, want)
	}
	if q.Mode != domain.ModeTop3 || q.ScanMode != ScanManual {
		t.Errorf("mode = %s, scan mode = %s", q.Mode, q.ScanMode)
	}

	empty := Query{Mode: "nope"}.Normalize()
	if len(empty.Locations) != 6 {
		t.Errorf("default locations = %v, want all six", empty.Locations)
	}
	if empty.Mode != domain.ModeBest {
		t.Errorf("unknown mode = %s, want best", empty.Mode)
	}
}

func TestQuery_Validate(t *testing.T) {
	valid := func() Query {
		return Query{
			Items:             []string{"T4_BAG"},
			Quality:           1,
			MaxDataAgeMinutes: 60,
		}.Normalize()
	}

	manyItems := make([]string, MaxItemsPerRequest+1)
	for i := range manyItems {
		manyItems[i] = "T4_ITEM_" + strings.Repeat("A", i+1)
	}

	tests := []struct {
		name   string
		mutate func(q *Query)
		code   apperror.Code
	}{
		{name: "valid", mutate: func(*Query) {}},
		{name: "wildcard and enchant chars", mutate: func(q *Query) { q.Items = []string{"T4_*", "T4_BAG@3", "T4.BAG"} }},
		{name: "auto without items", mutate: func(q *Query) { q.Items = nil; q.ScanMode = ScanAuto }},
		{name: "manual without items", mutate: func(q *Query) { q.Items = nil }, code: apperror.CodeInvalidInput},
		{name: "lowercase id", mutate: func(q *Query) { q.Items = []string{"t4_bag"} }, code: apperror.CodeInvalidItemID},
		{name: "too many items", mutate: func(q *Query) { q.Items = manyItems }, code: apperror.CodeTooManyItems},
		{name: "exactly fifty items", mutate: func(q *Query) { q.Items = manyItems[:MaxItemsPerRequest] }},
		{name: "unknown location", mutate: func(q *Query) { q.Locations = []string{"Brecilien"} }, code: apperror.CodeInvalidLocation},
		{name: "quality zero", mutate: func(q *Query) { q.Quality = 0 }, code: apperror.CodeInvalidQueryFilter},
		{name: "negative min profit", mutate: func(q *Query) { q.MinProfitPercent = -1 }, code: apperror.CodeInvalidQueryFilter},
		{name: "min profit too high", mutate: func(q *Query) { q.MinProfitPercent = 1001 }, code: apperror.CodeInvalidQueryFilter},
		{name: "data age too high", mutate: func(q *Query) { q.MaxDataAgeMinutes = 1441 }, code: apperror.CodeInvalidQueryFilter},
		{name: "batch size too high", mutate: func(q *Query) { q.BatchSize = 51 }, code: apperror.CodeInvalidQueryFilter},
		{name: "fee rate of one", mutate: func(q *Query) { q.Fees = &domain.FeeConfig{TaxRate: 1} }, code: apperror.CodeInvalidQueryFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid()
			tt.mutate(&q)
			err := q.Validate()

			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if got := apperror.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (err %v)", got, tt.code, err)
			}

			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.StatusCode != 400 {
				t.Errorf("status = %d, want 400", appErr.StatusCode)
			}
		})
	}
}
