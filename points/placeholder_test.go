package points

import "testing"

func TestPlaceholderIDDeterministic(t *testing.T) {
	a := PlaceholderID("Орися")
	b := PlaceholderID("Орися")
	if a != b {
		t.Fatalf("same label produced different ids: %d vs %d", a, b)
	}
	if PlaceholderID("Орися") == PlaceholderID("Остап") {
		t.Fatal("distinct labels collided")
	}
}

func TestPlaceholderIDRange(t *testing.T) {
	labels := []string{"", "a", "Орися", "user with spaces", "🥇"}
	for _, label := range labels {
		id := PlaceholderID(label)
		if !IsPlaceholderID(id) {
			t.Fatalf("id %d for %q not in reserved range", id, label)
		}
		if id > -placeholderOffset || id < -placeholderOffset-int64(placeholderSpan) {
			t.Fatalf("id %d for %q escaped the reserved window", id, label)
		}
	}
}

func TestIsPlaceholderIDRejectsPlatformIDs(t *testing.T) {
	for _, id := range []int64{0, 1, 123456789, -1, -42} {
		if IsPlaceholderID(id) {
			t.Fatalf("id %d wrongly classified as placeholder", id)
		}
	}
}
