package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_VALUE", "  ")
	if got := Get("STOREFRONT_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("STOREFRONT_TEST_VALUE", "set")
	if got := Get("STOREFRONT_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestFirstPicksEarliestKey(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_A", "")
	t.Setenv("STOREFRONT_TEST_B", "b")
	t.Setenv("STOREFRONT_TEST_C", "c")

	if got := First("STOREFRONT_TEST_A", "STOREFRONT_TEST_B", "STOREFRONT_TEST_C"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("STOREFRONT_TEST_A"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
