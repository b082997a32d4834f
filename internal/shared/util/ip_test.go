package util

import (
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/status", nil)
	r.RemoteAddr = "192.0.2.10:52110"
	if ip := GetClientIP(r); ip != "192.0.2.10" {
		t.Errorf("expected 192.0.2.10, got %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := GetClientIP(r); ip != "203.0.113.7" {
		t.Errorf("expected forwarded address 203.0.113.7, got %q", ip)
	}
}

func TestGetClientIPWithoutPort(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10"
	if ip := GetClientIP(r); ip != "192.0.2.10" {
		t.Errorf("expected raw address back, got %q", ip)
	}
}
