package content

import (
	"testing"
)

func TestFilterer_Run_NoFilters(t *testing.T) {
	filterer := NewFilterer(nil)

	items := []Item{
		{Title: "Test Item 1", Body: "Test body"},
		{Title: "Test Item 2", Body: "Another body"},
	}

	result := filterer.Run("test", items)

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
}

func TestFilterer_Run_TitleIncludeFilter(t *testing.T) {
	filterer := NewFilterer([]Filter{
		{Field: "title", Includes: []string{"protein", "cultivated"}},
	})

	items := []Item{
		{Title: "Plant Protein Startup Raises Seed Round"},
		{Title: "Cultivated Meat Approved in Singapore"},
		{Title: "Quarterly Weather Report"},
	}

	result := filterer.Run("test", items)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if result[0].Title != items[0].Title {
		t.Errorf("Expected first item to be kept, got '%s'", result[0].Title)
	}
	if result[1].Title != items[1].Title {
		t.Errorf("Expected second item to be kept, got '%s'", result[1].Title)
	}
}

func TestFilterer_Run_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer([]Filter{
		{Field: "title", Includes: []string{"protein"}, Excludes: []string{"sponsored"}},
	})

	items := []Item{
		{Title: "Protein news"},
		{Title: "SPONSORED: protein bar deal"},
	}

	result := filterer.Run("test", items)

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0].Title != "Protein news" {
		t.Errorf("Expected 'Protein news', got '%s'", result[0].Title)
	}
}

func TestFilterer_Run_EmailFields(t *testing.T) {
	filterer := NewFilterer([]Filter{
		{Field: "sender", Excludes: []string{"noreply"}},
		{Field: "subject", Includes: []string{"campaign"}},
	})

	items := []Item{
		{Kind: KindEmail, Sender: "Alice", Subject: "Campaign update"},
		{Kind: KindEmail, Sender: "noreply@list", Subject: "Campaign digest"},
		{Kind: KindEmail, Sender: "Bob", Subject: "Lunch"},
	}

	result := filterer.Run("test", items)

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0].Sender != "Alice" {
		t.Errorf("Expected Alice's email to pass, got '%s'", result[0].Sender)
	}
}

func TestFilterer_Run_UnknownFieldMatchesNothing(t *testing.T) {
	filterer := NewFilterer([]Filter{
		{Field: "authors", Includes: []string{"anyone"}},
	})

	result := filterer.Run("test", []Item{{Title: "anyone"}})

	if len(result) != 0 {
		t.Errorf("Expected include filter on unknown field to drop the item, got %d items", len(result))
	}
}
