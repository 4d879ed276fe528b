package discovery

import "testing"

func TestDefaultGRPCAddr(t *testing.T) {
	if got := DefaultGRPCAddr(ServiceNumbering); got != "numbering:8096" {
		t.Fatalf("DefaultGRPCAddr = %q, want numbering:8096", got)
	}
	if got := DefaultGRPCAddr("unknown"); got != "" {
		t.Fatalf("DefaultGRPCAddr(unknown) = %q, want empty", got)
	}
}

func TestDefaultHTTPAddr(t *testing.T) {
	cases := map[string]string{
		ServiceNumbering: "numbering:8095",
		ServiceJaeger:    "jaeger:16686",
	}
	for service, want := range cases {
		if got := DefaultHTTPAddr(service); got != want {
			t.Fatalf("DefaultHTTPAddr(%q) = %q, want %q", service, got, want)
		}
	}
}

func TestListenDefaults(t *testing.T) {
	if got := DefaultGRPCPort(" numbering "); got != 8096 {
		t.Fatalf("DefaultGRPCPort = %d, want 8096", got)
	}
	if got := DefaultHTTPListenAddr(ServiceNumbering); got != ":8095" {
		t.Fatalf("DefaultHTTPListenAddr = %q, want :8095", got)
	}
	if got := DefaultHTTPListenAddr("unknown"); got != "" {
		t.Fatalf("DefaultHTTPListenAddr(unknown) = %q, want empty", got)
	}
}

func TestOrDefaultGRPCAddr(t *testing.T) {
	if got := OrDefaultGRPCAddr(" custom:9000 ", ServiceNumbering); got != "custom:9000" {
		t.Fatalf("expected explicit grpc addr to win, got %q", got)
	}
	if got := OrDefaultGRPCAddr("", ServiceNumbering); got != "numbering:8096" {
		t.Fatalf("expected default grpc addr, got %q", got)
	}
}
