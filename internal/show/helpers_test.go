package show

import "testing"

// testDocument returns a valid show with one dimmer, one RGB fixture and a
// look targeting both.
func testDocument(t *testing.T) *Document {
	t.Helper()
	doc := Default()
	doc.Fixtures = []Fixture{
		{ID: "par1", Name: "Par 1", ProfileID: "dimmer", Universe: 1, StartAddress: 1},
		{ID: "led1", Name: "LED 1", ProfileID: "dimmer-rgb", Universe: 1, StartAddress: 10},
	}
	doc.Looks = []Look{
		{
			ID:    "blue",
			Name:  "Blue wash",
			Color: "#0000ff",
			Targets: map[string]map[ChannelName]float64{
				"par1": {"intensity": 80},
				"led1": {"intensity": 100, "red": 0, "green": 0, "blue": 100},
			},
		},
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("testDocument invalid: %v", err)
	}
	return doc
}
