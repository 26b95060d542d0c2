package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/dicilo-app/dicilo/internal/model"
	"github.com/dicilo-app/dicilo/internal/store"
)

func TestGetWalletDataMissingWallet(t *testing.T) {
	f := newFixture(t)

	data, err := f.svc.GetWalletData("nobody")
	if err != nil {
		t.Fatalf("get wallet data: %v", err)
	}
	if data.Balance != 0 || data.TotalEarned != 0 || data.TotalSpent != 0 {
		t.Errorf("expected zero balances, got %+v", data)
	}
	if len(data.Transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(data.Transactions))
	}
	// Unset point value falls back to the default.
	if data.PointValue != store.DefaultPointValue {
		t.Errorf("point value = %v, want %v", data.PointValue, store.DefaultPointValue)
	}
}

func TestGetWalletDataRecentTransactions(t *testing.T) {
	f := newFixture(t)
	uid := "user-recent"

	// 25 movements, backdated one minute apart.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		desc := fmt.Sprintf("movement %d", i)
		opt := store.TxOptions{At: base.Add(time.Duration(i) * time.Minute)}
		if err := f.wallets.Credit(f.db, uid, 1, model.TxManualAdjustment, desc, opt); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	data, err := f.svc.GetWalletData(uid)
	if err != nil {
		t.Fatalf("get wallet data: %v", err)
	}
	if data.Balance != 25 {
		t.Errorf("balance = %d, want 25", data.Balance)
	}
	if len(data.Transactions) != 20 {
		t.Fatalf("transactions = %d, want 20", len(data.Transactions))
	}
	// Newest first, and the cut drops the oldest five.
	if data.Transactions[0].Description != "movement 24" {
		t.Errorf("first = %q, want %q", data.Transactions[0].Description, "movement 24")
	}
	if data.Transactions[19].Description != "movement 5" {
		t.Errorf("last = %q, want %q", data.Transactions[19].Description, "movement 5")
	}
}

func TestGetWalletDataConfiguredPointValue(t *testing.T) {
	f := newFixture(t)
	if err := f.settings.SetPointValue(0.18); err != nil {
		t.Fatalf("set point value: %v", err)
	}
	data, err := f.svc.GetWalletData("anyone")
	if err != nil {
		t.Fatalf("get wallet data: %v", err)
	}
	if data.PointValue != 0.18 {
		t.Errorf("point value = %v, want 0.18", data.PointValue)
	}
}

func TestFreelancerReport(t *testing.T) {
	f := newFixture(t)
	uid := "user-report"
	f.createProfile(t, uid, "report@example.com", "CODE-R")

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		desc := fmt.Sprintf("movement %d", i)
		opt := store.TxOptions{At: base.Add(time.Duration(i) * time.Hour)}
		if err := f.wallets.Credit(f.db, uid, 10, model.TxManualAdjustment, desc, opt); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	report, res := f.svc.GetFreelancerReportData("CODE-R", "report@example.com", testMaster)
	if !res.Success {
		t.Fatalf("report failed: %s", res.Message)
	}
	if report.Balance != 50 || report.TotalEarned != 50 {
		t.Errorf("balances = %d/%d, want 50/50", report.Balance, report.TotalEarned)
	}
	if len(report.Transactions) != 5 {
		t.Fatalf("transactions = %d, want 5", len(report.Transactions))
	}
	for i := 1; i < len(report.Transactions); i++ {
		if report.Transactions[i].CreatedAt.After(report.Transactions[i-1].CreatedAt) {
			t.Errorf("transactions not sorted newest-first at index %d", i)
		}
	}
	if report.UniqueCode != "CODE-R" {
		t.Errorf("unique code = %q", report.UniqueCode)
	}
}

func TestFreelancerReportGating(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-g", "g@example.com", "CODE-G")

	if _, res := f.svc.GetFreelancerReportData("CODE-G", "g@example.com", "wrong"); res.Success {
		t.Error("expected auth failure")
	}
	if _, res := f.svc.GetFreelancerReportData("CODE-X", "g@example.com", testMaster); res.Success {
		t.Error("expected identity failure")
	}
}
