package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/settlement"
)

func TestSettleArgs(t *testing.T) {
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		merchantID   int
		date         string
		wantMerchant mo.Option[int]
		wantDate     mo.Option[time.Time]
		wantErr      bool
	}{
		{name: "Defaults", wantMerchant: mo.None[int](), wantDate: mo.None[time.Time]()},
		{name: "Merchant and date", merchantID: 2, date: "2026-10-16", wantMerchant: mo.Some(2), wantDate: mo.Some(day)},
		{name: "Negative merchant", merchantID: -1, wantErr: true},
		{name: "Bad date", date: "16/10/2026", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merchant, date, err := settleArgs(tt.merchantID, tt.date)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMerchant, merchant)
			assert.Equal(t, tt.wantDate, date)
		})
	}
}

func TestReportOutput(t *testing.T) {
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	st := domain.NewSettlement(2, day, decimal.RequireFromString("100"), decimal.Zero, decimal.RequireFromString("90"), day)

	var buf bytes.Buffer
	err := printJSON(&buf, reportOutput(settlement.Report{
		Date:    day,
		Settled: []domain.Settlement{*st},
		Skipped: []int{3},
	}))

	require.NoError(t, err)
	out := buf.String()
	assert.Equal(t, "2026-10-16", gjson.Get(out, "date").String())
	assert.Equal(t, "DISCREPANCY", gjson.Get(out, "settled.0.status").String())
	assert.Equal(t, "10.00", gjson.Get(out, "settled.0.discrepancy").String())
	assert.Equal(t, int64(3), gjson.Get(out, "skipped.0").Int())
}

func TestAccountToken_RequiresID(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"account", "token", "--ttl", "1h"})

	err := cmd.Execute()

	assert.EqualError(t, err, "--id must be positive")
}

func TestRootCommands(t *testing.T) {
	cmd := rootCmd()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "account", "settle"})
}
