package nlmsg

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

func TestConfigUnmarshal(t *testing.T) {
	tests := map[string]struct {
		in   string
		want Config
	}{
		"defaults": {
			in:   "strict: false",
			want: DefaultConfig,
		},
		"groups": {
			in: "groups: [1, 3]\nnoENOBUFS: true\nnoAutoAck: true",
			want: Config{
				Groups:     []uint32{1, 3},
				ReadBuffer: DumpBufferSize,
				NoENOBUFS:  true,
				NoAutoAck:  true,
			},
		},
		"buffers": {
			in: "readBuffer: 1048576\nwriteBuffer: 65536\nextendedAck: true",
			want: Config{
				ReadBuffer:  1048576,
				WriteBuffer: 65536,
				ExtendedAck: true,
			},
		},
	}
	for name, tc := range tests {
		var got Config
		if err := yaml.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}

	var got Config
	if err := yaml.Unmarshal([]byte("readBuffer: many"), &got); err == nil {
		t.Errorf("bad readBuffer accepted")
	}
}
