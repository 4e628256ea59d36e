package catalog

import (
	"testing"
)

func TestParseItemResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "Clean_JSON",
			raw:       `{"items":[{"name":"Espresso","price":3,"currency":"EUR"}]}`,
			wantItems: 1,
		},
		{
			name:      "Fenced_Markdown",
			raw:       "```json\n{\"items\":[{\"name\":\"Espresso\",\"price\":3}]}\n```",
			wantItems: 1,
		},
		{
			name:      "Trailing_Commas",
			raw:       `{"items":[{"name":"Espresso","price":3,},],}`,
			wantItems: 1,
		},
		{
			name:    "Not_JSON",
			raw:     "Here are the items I found:",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := parseItemResponse(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected a parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseItemResponse failed: %v", err)
			}
			if len(parsed.Items) != tc.wantItems {
				t.Errorf("items = %d, want %d", len(parsed.Items), tc.wantItems)
			}
		})
	}
}

func TestToExtractedItems_PriceHandling(t *testing.T) {
	price := 4.5
	parsed := generatedResponse{Items: []generatedItem{
		{Name: "Flat White", Price: &price, Currency: "EUR"},
		{Name: "Tap water"},
		{Name: "   "},
	}}

	items := toExtractedItems(parsed)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (blank name dropped)", len(items))
	}
	if !items[0].HasPrice || items[0].Price != 4.5 || items[0].Currency != "EUR" {
		t.Errorf("priced item = %+v", items[0])
	}
	if items[1].HasPrice {
		t.Errorf("absent price must not set HasPrice: %+v", items[1])
	}
}
