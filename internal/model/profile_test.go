package model

import (
	"reflect"
	"testing"
)

func TestReferralIDs(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"empty array", `[]`, []string{}, false},
		{"bare strings", `["a","b"]`, []string{"a", "b"}, false},
		{"uid objects", `[{"uid":"a"},{"uid":"b"}]`, []string{"a", "b"}, false},
		{"legacy id field", `[{"id":"a"}]`, []string{"a"}, false},
		{"uid wins over id", `[{"uid":"a","id":"b"}]`, []string{"a"}, false},
		{"mixed shapes", `["a",{"uid":"b"},{"id":"c"}]`, []string{"a", "b", "c"}, false},
		{"empty and malformed entries skipped", `["", {}, {"other":1}, "d"]`, []string{"d"}, false},
		{"not an array", `{"uid":"a"}`, nil, true},
		{"invalid json", `nope`, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Profile{Referrals: tc.raw}
			got, err := p.ReferralIDs()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
