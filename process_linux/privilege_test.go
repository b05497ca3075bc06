//go:build linux

package process_linux

import (
	"testing"

	"sigscan/process"

	"github.com/stretchr/testify/assert"
)

func TestCheckPtraceScope(t *testing.T) {
	tests := []struct {
		name    string
		scope   int
		euid    int
		wantErr bool
	}{
		{name: "classic", scope: 0, euid: 1000},
		{name: "restricted as root", scope: 1, euid: 0},
		{name: "restricted as user", scope: 1, euid: 1000, wantErr: true},
		{name: "admin only as root", scope: 2, euid: 0},
		{name: "no attach", scope: 3, euid: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPtraceScope(tt.scope, tt.euid)
			if tt.wantErr {
				assert.ErrorIs(t, err, process.ErrPermissionDenied)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
