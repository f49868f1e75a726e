package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDateKeepsCalendarDay(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-03-10", "2024-03-10"},
		{"2024-03-10T00:00:00+02:00", "2024-03-10"},
		{"2024-03-09T23:30:00-05:00", "2024-03-09"},
		{"2024-03-10T00:00:00Z", "2024-03-10"},
		{" 2024-12-31 ", "2024-12-31"},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseDate("next tuesday"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Due *Date `json:"due"`
	}
	if err := json.Unmarshal([]byte(`{"due":"2025-01-05T00:00:00+09:00"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"due":"2025-01-05"}` {
		t.Fatalf("unexpected json %s", out)
	}

	if err := json.Unmarshal([]byte(`{"due":null}`), &payload); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if payload.Due != nil {
		t.Fatalf("expected nil due date, got %v", payload.Due)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2023-07-01"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if d.String() != "2023-07-01" {
		t.Fatalf("got %s", d)
	}
	loc := time.FixedZone("x", -8*3600)
	if err := d.Scan(time.Date(2023, 7, 2, 23, 0, 0, 0, loc)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2023-07-02" {
		t.Fatalf("got %s", d)
	}
	if err := d.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}

func TestProjectInputValidate(t *testing.T) {
	long := strings.Repeat("a", MaxProjectName+1)
	desc := strings.Repeat("d", MaxProjectDescription+1)
	ok := "fine"
	cases := []struct {
		name  string
		in    ProjectInput
		field string
	}{
		{"valid", ProjectInput{Name: "Website", Description: &ok}, ""},
		{"blank name", ProjectInput{Name: "   "}, "name"},
		{"long name", ProjectInput{Name: long}, "name"},
		{"long description", ProjectInput{Name: "x", Description: &desc}, "description"},
		{"name wins over description", ProjectInput{Name: "", Description: &desc}, "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %s, want %s", ve.Field, tc.field)
			}
		})
	}
}

func TestTaskInputValidate(t *testing.T) {
	title := "Fix bug"
	empty := "  "
	neg := -1.0
	bad := Status("archived")
	badPriority := Priority("whenever")

	if err := (TaskInput{Title: &title}).Validate(true); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}
	if err := (TaskInput{}).Validate(true); !IsValidation(err) {
		t.Fatalf("missing title accepted on create: %v", err)
	}
	if err := (TaskInput{}).Validate(false); err != nil {
		t.Fatalf("empty edit rejected: %v", err)
	}
	if err := (TaskInput{Title: &empty}).Validate(false); !IsValidation(err) {
		t.Fatalf("blank title accepted on edit: %v", err)
	}
	if err := (TaskInput{Title: &title, EstimatedHours: &neg}).Validate(true); !IsValidation(err) {
		t.Fatalf("negative hours accepted: %v", err)
	}
	if err := (TaskInput{Status: &bad}).Validate(false); !IsValidation(err) {
		t.Fatalf("bad status accepted: %v", err)
	}
	if err := (TaskInput{Priority: &badPriority}).Validate(false); !IsValidation(err) {
		t.Fatalf("bad priority accepted: %v", err)
	}
}

func TestTaskInputNormalize(t *testing.T) {
	title := "  Write docs "
	blank := " "
	tags := []string{"api", " api", "", "docs"}
	in := TaskInput{Title: &title, AssignedTo: &blank, Tags: &tags}
	in.Normalize()
	if *in.Title != "Write docs" {
		t.Fatalf("title not trimmed: %q", *in.Title)
	}
	if in.AssignedTo != nil {
		t.Fatalf("blank assignee should be nil")
	}
	if got := strings.Join(*in.Tags, ","); got != "api,docs" {
		t.Fatalf("tags = %s", got)
	}
}

func TestCommentInputValidate(t *testing.T) {
	url := "http://x/files/a.png"
	if err := (CommentInput{Content: "hi"}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := (CommentInput{Content: " "}).Validate(); !IsValidation(err) {
		t.Fatalf("blank comment accepted")
	}
	if err := (CommentInput{Content: "x", AttachmentURL: &url}).Validate(); !IsValidation(err) {
		t.Fatalf("attachment without name accepted")
	}
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions("ping @[Ada Lovelace](u1) and @[Bob](u2), again @[Ada Lovelace](u1)")
	if strings.Join(got, ",") != "u1,u2" {
		t.Fatalf("mentions = %v", got)
	}
	if ParseMentions("no mentions @here") != nil {
		t.Fatal("expected no mentions")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range Statuses {
		if s.Terminal() != (s == StatusCompleted) {
			t.Fatalf("terminal mismatch for %s", s)
		}
	}
	if Status("done").Valid() {
		t.Fatal("done is not a board status")
	}
}
