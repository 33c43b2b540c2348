package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestUsageRecordDecode(t *testing.T) {
	body := `[{"id":1,"confirmType":"승인","date":"2024.08.01","time":"12:30","fee":15000,"place":"스타벅스"},
	          {"id":2,"confirmType":"취소","date":"2024.08.02","time":"09:10","fee":4500,"place":"GS25","extra":true}]`
	var got []UsageRecord
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Place != "스타벅스" || got[0].Fee != 15000 || got[0].Cancelled() {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if !got[1].Cancelled() {
		t.Fatalf("expected second record to be cancelled: %+v", got[1])
	}
}

func TestUsageRecordDecodeRejectsIncomplete(t *testing.T) {
	cases := map[string]string{
		"missing fee":  `{"id":1,"confirmType":"승인","date":"d","time":"t","place":"p"}`,
		"null place":   `{"id":1,"confirmType":"승인","date":"d","time":"t","fee":1,"place":null}`,
		"empty object": `{}`,
	}
	for name, body := range cases {
		var rec UsageRecord
		err := json.Unmarshal([]byte(body), &rec)
		if !errors.Is(err, ErrIncompleteRecord) {
			t.Fatalf("%s: expected ErrIncompleteRecord, got %v", name, err)
		}
	}
}

func TestUsageRecordDecodeRejectsWrongTypes(t *testing.T) {
	cases := []string{
		`{"id":"1","confirmType":"승인","date":"d","time":"t","fee":1,"place":"p"}`,
		`{"id":1,"confirmType":"승인","date":"d","time":"t","fee":1.5,"place":"p"}`,
		`"not an object"`,
	}
	for _, body := range cases {
		var rec UsageRecord
		if err := json.Unmarshal([]byte(body), &rec); err == nil {
			t.Fatalf("%s: expected error", body)
		}
	}
}

func TestMonthHeading(t *testing.T) {
	oct := time.Date(2024, time.October, 3, 0, 0, 0, 0, time.UTC)
	if got := MonthHeading(oct, language.English); got != "OCTOBER" {
		t.Fatalf("english heading = %q", got)
	}
	if got := MonthHeading(oct, language.MustParse("ko-KR")); got != "10월" {
		t.Fatalf("korean heading = %q", got)
	}
	if got := DetailTitle(oct); got != "10월 이용내역 상세" {
		t.Fatalf("detail title = %q", got)
	}
}

func TestParseLocale(t *testing.T) {
	if _, err := ParseLocale("ko"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseLocale("not a locale!"); err == nil {
		t.Fatalf("expected error")
	}
}
