package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	const key = "JOBMONITOR_TEST_BOOL"

	if got := ParseBoolEnv(key, true); got != true {
		t.Error("unset variable must return default")
	}
	for _, v := range []string{"true", "1", "YES", "On"} {
		t.Setenv(key, v)
		if !ParseBoolEnv(key, false) {
			t.Errorf("%q must parse as true", v)
		}
	}
	for _, v := range []string{"false", "0", "NO", "off"} {
		t.Setenv(key, v)
		if ParseBoolEnv(key, true) {
			t.Errorf("%q must parse as false", v)
		}
	}
	t.Setenv(key, "maybe")
	if got := ParseBoolEnv(key, true); got != true {
		t.Error("invalid value must return default")
	}
}

func TestParseIntEnv(t *testing.T) {
	const key = "JOBMONITOR_TEST_INT"

	if got := ParseIntEnv(key, 7); got != 7 {
		t.Error("unset variable must return default")
	}
	t.Setenv(key, " 42 ")
	if got := ParseIntEnv(key, 7); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	t.Setenv(key, "forty-two")
	if got := ParseIntEnv(key, 7); got != 7 {
		t.Error("invalid value must return default")
	}
}

func TestParseInt64Env(t *testing.T) {
	const key = "JOBMONITOR_TEST_INT64"

	t.Setenv(key, "-1001234567890")
	if got := ParseInt64Env(key, 0); got != -1001234567890 {
		t.Errorf("got %d", got)
	}
	t.Setenv(key, "nope")
	if got := ParseInt64Env(key, 5); got != 5 {
		t.Error("invalid value must return default")
	}
}
