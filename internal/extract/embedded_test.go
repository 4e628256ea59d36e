package extract

import (
	"strings"
	"testing"
)

func TestExtractEmbeddedJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantFound   bool
		wantLines   int
		wantLowConf int
		wantContain string
	}{
		{
			name: "Next_Data_Items",
			body: `<script id="__NEXT_DATA__" type="application/json">
				{"props":{"items":[{"name":"Latte","price":4.2,"description":"oat milk"},{"name":"Mocha","price":4.8}]}}
			</script>`,
			wantFound:   true,
			wantLines:   2,
			wantContain: "Latte",
		},
		{
			name: "Nuxt_State_With_Trailing_Commas",
			body: `<script>window.__NUXT__={"state":{"products":[{"title":"Haircut","amount":35,},{"title":"Beard trim","amount":15,},]},}</script>`,
			wantFound:   true,
			wantLines:   2,
			wantContain: "Haircut",
		},
		{
			name: "JSON_LD_Offer_Nested_Price",
			body: `<script type="application/ld+json">
				[{"@type":"Product","name":"Annual plan","offers":{"price":"99.00","priceCurrency":"EUR"}}]
			</script>`,
			wantFound:   true,
			wantLines:   1,
			wantContain: "99.00",
		},
		{
			name: "Name_Only_Is_Low_Confidence",
			body: `<script id="__NEXT_DATA__" type="application/json">
				{"props":{"entries":[{"name":"Consultation"},{"name":"Follow-up"}]}}
			</script>`,
			wantFound:   true,
			wantLines:   2,
			wantLowConf: 2,
		},
		{
			name:      "No_Payload_Markers",
			body:      `<script>console.log("hi")</script><p>hello</p>`,
			wantFound: false,
		},
		{
			name:      "Payload_Without_Item_Shapes",
			body:      `<script id="__NEXT_DATA__" type="application/json">{"props":{"locale":"en","build":"abc123"}}</script>`,
			wantFound: false,
		},
		{
			name:      "Unrepairable_JSON",
			body:      `<script id="__NEXT_DATA__" type="application/json">{"props": not even close}</script>`,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, found := extractEmbeddedJSON(tt.body)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if !found {
				return
			}
			if len(res.lines) != tt.wantLines {
				t.Errorf("lines = %d, want %d: %v", len(res.lines), tt.wantLines, res.lines)
			}
			if res.lowConfidence != tt.wantLowConf {
				t.Errorf("lowConfidence = %d, want %d", res.lowConfidence, tt.wantLowConf)
			}
			if tt.wantContain != "" && !strings.Contains(embeddedText(res), tt.wantContain) {
				t.Errorf("text %q missing %q", embeddedText(res), tt.wantContain)
			}
		})
	}
}

func TestCollectItems_DepthBounded(t *testing.T) {
	// nest the item array deeper than the walker is allowed to reach
	depth := 20
	payload := `{"items":[{"name":"Buried","price":9.99},{"name":"Deeper","price":1.5}]}`
	for i := 0; i < depth; i++ {
		payload = `{"level":` + payload + `}`
	}

	res, found := extractEmbeddedJSON(`<script id="__NEXT_DATA__" type="application/json">` + payload + `</script>`)
	if found {
		t.Errorf("expected item beyond depth cap to be ignored, got %v", res.lines)
	}
}
