package prefilter

import "testing"

func TestKeywordFilter_IsConversational(t *testing.T) {
	f := NewKeywordFilter()

	cases := []struct {
		text string
		want bool
	}{
		{"hello there", true},
		{"hi, how are you", true},
		{"", true},
		{"   ", true},
		{"what is the price of bitcoin", false},
		{"weather in Paris", false},
		{"thanks, what is the exchange rate for eur/usd", false},
		{"goodbye", true},
	}

	for _, c := range cases {
		if got := f.IsConversational(c.text); got != c.want {
			t.Errorf("IsConversational(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
