package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCvar(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{
			name:      "quoted with default note",
			line:      `"tm_status" = "live" ( def. "" )`,
			wantName:  "tm_status",
			wantValue: "live",
		},
		{
			name:      "unquoted numeric",
			line:      `tm_score_t1 = 13`,
			wantName:  "tm_score_t1",
			wantValue: "13",
		},
		{
			name:      "empty value",
			line:      `"tm_map_number" = ""`,
			wantName:  "tm_map_number",
			wantValue: "",
		},
		{
			name:    "no equals sign",
			line:    `Unknown command`,
			wantErr: true,
		},
		{
			name:    "empty name",
			line:    `"" = "live"`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, value, err := ParseCvar(tc.line)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantValue, value)
		})
	}
}

func TestParseCvarsSkipsGarbage(t *testing.T) {
	response := `L 08/30/2026 - server log line
"tm_status" = "live" ( def. "" )
"tm_map_number" = "2"
"tm_score_t1" = "7"
"tm_score_t2" = "4"

Unknown command "tm_whatever"`

	cvars := ParseCvars(response)
	assert.Equal(t, map[string]string{
		"tm_status":     "live",
		"tm_map_number": "2",
		"tm_score_t1":   "7",
		"tm_score_t2":   "4",
	}, cvars)
}
