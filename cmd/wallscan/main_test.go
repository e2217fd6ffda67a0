package main

import (
	"reflect"
	"testing"

	"github.com/dronescan/wallscan/pkg/types"
)

func TestExportEncodingsOrder(t *testing.T) {
	cases := []struct {
		name   string
		native types.Encoding
		yolo   bool
		qwen   bool
		want   []types.Encoding
	}{
		{"native only", types.Qwen1000, false, false, []types.Encoding{types.Qwen1000}},
		{"qwen native plus yolo", types.Qwen1000, true, false,
			[]types.Encoding{types.Qwen1000, types.YoloNormalized}},
		{"both extras", types.Corners, true, true,
			[]types.Encoding{types.Corners, types.YoloNormalized, types.Qwen1000}},
		{"yolo native deduped", types.YoloNormalized, true, true,
			[]types.Encoding{types.YoloNormalized, types.Qwen1000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := exportEncodings(tc.native, tc.yolo, tc.qwen)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("exportEncodings = %v, want %v", got, tc.want)
			}
		})
	}
}
