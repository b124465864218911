package resolver

import "testing"

func TestCoerce(t *testing.T) {
	choices := []string{"Select an option", "Yes", "No"}
	cases := []struct {
		name string
		raw  string
		q    Question
		want Answer
		ok   bool
	}{
		{"bool yes", "Yes.", Question{Kind: KindBool}, Answer{Kind: KindBool, Bool: true}, true},
		{"bool false", "false", Question{Kind: KindBool}, Answer{Kind: KindBool}, true},
		{"bool unknown", "maybe", Question{Kind: KindBool}, Answer{}, false},
		{"number plus", "5+ years", Question{Kind: KindNumber}, Answer{Kind: KindNumber, Number: 5}, true},
		{"number k", "$120k", Question{Kind: KindNumber}, Answer{Kind: KindNumber, Number: 120000}, true},
		{"number separators", "about 1,500.5", Question{Kind: KindNumber}, Answer{Kind: KindNumber, Number: 1500.5}, true},
		{"number missing", "none", Question{Kind: KindNumber}, Answer{}, false},
		{"choice", "yes", Question{Kind: KindChoice, Options: choices}, Answer{Kind: KindChoice, Choice: 1, Text: "Yes"}, true},
		{"choice unknown", "purple", Question{Kind: KindChoice, Options: choices}, Answer{}, false},
		{"text quoted", `"Hello there"`, Question{Kind: KindText}, Answer{Kind: KindText, Text: "Hello there"}, true},
		{"empty", "   ", Question{Kind: KindText}, Answer{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Coerce(tc.raw, tc.q)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestUnwrapReply(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"answer\": true}\n```": "true",
		`{"answer": 4}`:                    "4",
		`{"answer": "Remote"}`:             "Remote",
		`{"other": 1}`:                     "",
		"plain text":                       "plain text",
		`{broken`:                          "{broken",
	}
	for raw, want := range cases {
		if got := unwrapReply(raw); got != want {
			t.Fatalf("unwrapReply(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMatchOption(t *testing.T) {
	ranges := []string{"0-2 years", "3-5 years", "6+ years"}
	cases := []struct {
		name    string
		options []string
		value   string
		want    int
	}{
		{"range", ranges, "4", 1},
		{"plus", ranges, "10", 2},
		{"containment", []string{"Native", "Professional", "Conversational"}, "professional working proficiency", 1},
		{"negative sentence", []string{"Select an option", "Yes", "No"}, "No, I do not", 2},
		{"no match", []string{"Red", "Blue"}, "green", -1},
		{"placeholder only", []string{"Select an option"}, "select an option", -1},
		{"word overlap", []string{"Bachelor of Science", "Master of Arts"}, "arts master", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchOption(tc.options, tc.value); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
