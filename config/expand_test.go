package config

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("MLSITE_TEST_TOKEN", "abc123")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{name: "plain value", in: "no variables here", want: "no variables here"},
		{name: "braced expansion", in: "token=${MLSITE_TEST_TOKEN}", want: "token=abc123"},
		{name: "bare expansion", in: "token=$MLSITE_TEST_TOKEN", want: "token=abc123"},
		{name: "escaped dollar", in: "cost=$$5", want: "cost=$5"},
		{name: "missing variable", in: "${MLSITE_TEST_UNSET_ONE}", wantErr: "MLSITE_TEST_UNSET_ONE"},
		{
			name:    "missing variables sorted",
			in:      "${MLSITE_TEST_UNSET_TWO} ${MLSITE_TEST_UNSET_ONE}",
			wantErr: "MLSITE_TEST_UNSET_ONE, MLSITE_TEST_UNSET_TWO",
		},
		{name: "empty string", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ExpandEnvStrict(%q) succeeded, want error", tt.in)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandEnvStrict(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
