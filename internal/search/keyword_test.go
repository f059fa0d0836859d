package search

import "testing"

func TestKeywordSearch_ANDSemantics(t *testing.T) {
	idx := makeIndex([]float32{1, 0}, []float32{0, 1}, []float32{1, 1})
	idx.Records[0].Description = "A red bicycle leaning on a wall"
	idx.Records[1].Description = "A red sunset over the sea"
	idx.Records[2].Description = "Green bicycle in the park"

	res := KeywordSearch(idx, "Red Bicycle", 0)
	if len(res) != 1 || res[0].Path != "a.jpg" {
		t.Fatalf("expected only a.jpg, got %+v", res)
	}

	res = KeywordSearch(idx, "bicycle", 1)
	if len(res) != 1 || res[0].Path != "a.jpg" {
		t.Fatalf("expected limit=1 to keep index order, got %+v", res)
	}

	if res := KeywordSearch(idx, "  ", 5); len(res) != 0 {
		t.Fatalf("blank query should match nothing, got %+v", res)
	}
	if res := KeywordSearch(idx, "c.jpg", 5); len(res) != 1 || res[0].Why != "keyword" {
		t.Fatalf("file names should be searchable, got %+v", res)
	}
}
